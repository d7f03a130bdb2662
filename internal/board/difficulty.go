package board

import "fmt"

// Difficulty labels a board geometry. It is only used as a lookup key by callers.
type Difficulty string

const (
	Beginner     Difficulty = "beg"
	Intermediate Difficulty = "int"
	ExpertV      Difficulty = "expv"
	ExpertH      Difficulty = "exph"
)

// Geometry is a row/column/mine triple for a room
type Geometry struct {
	Rows    int
	Columns int
	Mines   int
}

var presets = map[Difficulty]Geometry{
	Beginner:     {Rows: 8, Columns: 8, Mines: 10},
	Intermediate: {Rows: 16, Columns: 16, Mines: 40},
	ExpertV:      {Rows: 30, Columns: 16, Mines: 99},
	ExpertH:      {Rows: 16, Columns: 30, Mines: 99},
}

var aliases = map[string]Difficulty{
	"beg": Beginner, "b": Beginner,
	"int": Intermediate, "i": Intermediate,
	"exp-v": ExpertV, "ev": ExpertV, "e1": ExpertV,
	"exp-h": ExpertH, "eh": ExpertH, "e2": ExpertH,
}

// Preset returns the standard geometry for a difficulty
func Preset(d Difficulty) (Geometry, bool) {
	g, ok := presets[d]
	return g, ok
}

// ParseDifficulty accepts the chat spellings of a room mode
func ParseDifficulty(s string) (Difficulty, error) {
	if d, ok := aliases[s]; ok {
		return d, nil
	}
	return "", fmt.Errorf("board: unknown difficulty %q", s)
}

// Classify maps a board geometry onto a difficulty label.
// Non-standard sizes fall into the nearest class by cell count; expert boards are split by
// orientation.
func Classify(rows, cols, mines int) Difficulty {
	for d, g := range presets {
		if g.Rows == rows && g.Columns == cols && g.Mines == mines {
			return d
		}
	}

	switch area := rows * cols; {
	case area <= 64:
		return Beginner
	case area <= 256:
		return Intermediate
	case rows > cols:
		return ExpertV
	default:
		return ExpertH
	}
}
