package srs

import (
	"fmt"
	"time"
)

// Fixed due offsets per grade. Deliberately decoupled from the SM-2
// interval so short-term scheduling stays predictable.
const (
	againOffset = 2 * time.Minute
	hardOffset  = 10 * time.Minute
	goodOffset  = 24 * time.Hour
	easyOffset  = 4 * 24 * time.Hour
)

// DueAt returns the next due timestamp for a card graded at now.
// The result is UTC with second precision.
func DueAt(now time.Time, grade Grade) (time.Time, error) {
	var offset time.Duration
	switch grade {
	case GradeAgain:
		offset = againOffset
	case GradeHard:
		offset = hardOffset
	case GradeGood:
		offset = goodOffset
	case GradeEasy:
		offset = easyOffset
	default:
		return time.Time{}, fmt.Errorf("%w: unknown grade %q", ErrInvalidInput, grade)
	}
	return now.UTC().Add(offset).Truncate(time.Second), nil
}
