// Package skill converts a skill level into a solve pace and game outcomes back into
// an implied opponent level.
package skill

import (
	"math"
	"time"

	"autopvp/internal/board"
)

// timeExponent relates the quality gap of a player to completion time: t^1.7 = qg*bv
const timeExponent = 1.7

// qualityConstant is the empirical a/b constant per difficulty
var qualityConstant = map[board.Difficulty]float64{
	board.ExpertH:      435.001 / 1.000,
	board.ExpertV:      435.001 / 1.000,
	board.Intermediate: 153.730 / 1.020,
	board.Beginner:     47.299 / 1.765,
}

func constantFor(d board.Difficulty) float64 {
	if c, ok := qualityConstant[d]; ok {
		return c
	}
	return qualityConstant[board.Intermediate]
}

// EstimatedTime returns the expected completion time in seconds for a board of bv
func EstimatedTime(level float64, d board.Difficulty, bv int) float64 {
	qg := constantFor(d) / (level * 10)
	return math.Pow(qg*float64(bv), 1/timeExponent)
}

// EstimatedSolveRate returns the expected bv per second for a player at level
func EstimatedSolveRate(level float64, d board.Difficulty, bv int) float64 {
	return float64(bv) / EstimatedTime(level, d, bv)
}

// EstimatedOpponentLevel infers the level of a player who solved solvedBV of totalBV in
// elapsed. solvedBV is floored at 1.
func EstimatedOpponentLevel(d board.Difficulty, elapsed time.Duration, solvedBV, totalBV int) float64 {
	solved := float64(max(solvedBV, 1))
	total := float64(max(totalBV, 1))
	qg := math.Pow(elapsed.Seconds(), timeExponent) / solved * math.Sqrt(solved/total)
	return constantFor(d) / qg / 10
}

// DefaultLevel seeds the level for a new opponent from their declared rating
func DefaultLevel(rating float64) float64 {
	if rating < 0 {
		return defaultLevelCeiling
	}
	return math.Min(0.5*rating+0.5, defaultLevelCeiling)
}

const defaultLevelCeiling = 4.0
