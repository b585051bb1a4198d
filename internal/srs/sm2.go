// Package srs holds the pure scheduling math: the SM-2 state update,
// the grade heuristic, and the fixed-offset due-date table.
//
// Note: dueAt is not derived from the SM-2 interval. The SM-2 triple
// (easeFactor/repetitions/intervalDays) is maintained for coherence and
// future evolution; actual scheduling uses the offsets in schedule.go.
package srs

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput reports an out-of-range argument to one of the pure
// functions. It always indicates a programmer or data error and is never
// absorbed by callers.
var ErrInvalidInput = errors.New("srs: invalid input")

// MinEaseFactor is the floor the ease factor is clamped to.
const MinEaseFactor = 1.3

// DefaultEaseFactor seeds cards that have never been reviewed.
const DefaultEaseFactor = 2.5

// SM2State is the per-card spaced repetition state.
type SM2State struct {
	EaseFactor   float64
	Repetitions  int
	IntervalDays int
}

// Apply runs one SM-2 update for a recall of the given quality (0-5).
//
// Rules:
//   - EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02)), clamped to >= 1.3
//   - q < 3 is a lapse: repetitions reset to 0, interval to 1 day
//   - otherwise repetitions increment; the interval ladder is 1 day,
//     6 days, then round(previousInterval * EF')
func Apply(state SM2State, quality int) (SM2State, error) {
	if quality < 0 || quality > 5 {
		return SM2State{}, fmt.Errorf("%w: quality %d out of range [0,5]", ErrInvalidInput, quality)
	}

	miss := float64(5 - quality)
	ef := state.EaseFactor + (0.1 - miss*(0.08+miss*0.02))
	if ef < MinEaseFactor {
		ef = MinEaseFactor
	}

	if quality < 3 {
		return SM2State{EaseFactor: ef, Repetitions: 0, IntervalDays: 1}, nil
	}

	reps := state.Repetitions + 1
	var interval int
	switch reps {
	case 1:
		interval = 1
	case 2:
		interval = 6
	default:
		interval = int(math.Round(float64(state.IntervalDays) * ef))
		if interval < 1 {
			interval = 1
		}
	}

	return SM2State{EaseFactor: ef, Repetitions: reps, IntervalDays: interval}, nil
}
