package skill

import (
	"errors"
	"fmt"
	"math"
)

const (
	LevelStep = 0.5

	DefaultIncFactor = 0.24
	DefaultDecFactor = 0.08

	MinIncFactor = 0.06
	MaxIncFactor = 0.48
	MinDecFactor = 0.04
	MaxDecFactor = 0.32

	initialLevel = 2.0
)

var ErrOutOfBounds = errors.New("skill: level out of bounds")

// Bounds limits the level and sets the gain factors restored by Reset
type Bounds struct {
	MinLevel  float64
	MaxLevel  float64
	IncFactor float64
	DecFactor float64
}

func DefaultBounds() Bounds {
	return Bounds{MinLevel: 0.5, MaxLevel: 10, IncFactor: DefaultIncFactor, DecFactor: DefaultDecFactor}
}

// Tuner owns the bot's level and the gain factors of the post-game feedback rule.
// Losses pull the level toward the opponent with a growing gain, wins ease it back with a
// shrinking one.
type Tuner struct {
	bounds Bounds
	level  float64
	inc    float64
	dec    float64
	hold   bool
}

func NewTuner(b Bounds) *Tuner {
	b.IncFactor = clamp(b.IncFactor, MinIncFactor, MaxIncFactor)
	b.DecFactor = clamp(b.DecFactor, MinDecFactor, MaxDecFactor)
	t := &Tuner{bounds: b}
	t.level = clamp(initialLevel, b.MinLevel, b.MaxLevel)
	t.Reset()
	return t
}

func (t *Tuner) Level() float64 { return t.level }
func (t *Tuner) IncFactor() float64 { return t.inc }
func (t *Tuner) DecFactor() float64 { return t.dec }
func (t *Tuner) Hold() bool { return t.hold }
func (t *Tuner) Bounds() Bounds { return t.bounds }
func (t *Tuner) SetHold(hold bool) { t.hold = hold }
func (t *Tuner) String() string { return fmt.Sprintf("LV %.3f", t.level) }

// Reset releases the hold and restores the default gain factors. The level is kept.
func (t *Tuner) Reset() {
	t.hold = false
	t.inc = t.bounds.IncFactor
	t.dec = t.bounds.DecFactor
}

// SeedFromRating sets the level for a freshly joined opponent
func (t *Tuner) SeedFromRating(rating float64) {
	t.setClamped(DefaultLevel(rating))
}

func (t *Tuner) Up() {
	t.setClamped(t.level + LevelStep)
}

func (t *Tuner) Down() {
	t.setClamped(t.level - LevelStep)
}

// Set changes the level explicitly; out of range values leave it untouched
func (t *Tuner) Set(level float64) error {
	if math.IsNaN(level) || level < t.bounds.MinLevel || level > t.bounds.MaxLevel {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfBounds, level, t.bounds.MinLevel, t.bounds.MaxLevel)
	}
	t.level = level
	return nil
}

// Lost moves the level toward the implied opponent level after a defeat.
// It reports whether the feedback was applied.
func (t *Tuner) Lost(implied float64) bool {
	if t.hold {
		return false
	}
	t.setClamped(t.level + (implied-t.level)*t.inc)
	t.inc = math.Min(t.inc*2, MaxIncFactor)
	t.dec = math.Max(t.dec/2, MinDecFactor)
	return true
}

// Won eases the level toward the implied opponent level after a victory
func (t *Tuner) Won(implied float64) bool {
	if t.hold {
		return false
	}
	t.setClamped(t.level - (t.level-implied)*t.dec)
	t.inc = math.Max(t.inc/2, MinIncFactor)
	t.dec = math.Min(t.dec*2, MaxDecFactor)
	return true
}

func (t *Tuner) setClamped(level float64) {
	if math.IsNaN(level) {
		return
	}
	t.level = clamp(level, t.bounds.MinLevel, t.bounds.MaxLevel)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
