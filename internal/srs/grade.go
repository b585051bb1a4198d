package srs

import "fmt"

// Grade is the coarse recall-quality bucket derived from session behavior.
// The learner is never asked for a grade directly.
type Grade string

const (
	GradeAgain Grade = "again"
	GradeHard  Grade = "hard"
	GradeGood  Grade = "good"
	GradeEasy  Grade = "easy"
)

// Valid reports whether g is one of the four known grades.
func (g Grade) Valid() bool {
	switch g {
	case GradeAgain, GradeHard, GradeGood, GradeEasy:
		return true
	}
	return false
}

// QualityFor maps a grade to the SM-2 quality signal.
func QualityFor(grade Grade) (int, error) {
	switch grade {
	case GradeAgain:
		return 0, nil
	case GradeHard:
		return 3, nil
	case GradeGood:
		return 4, nil
	case GradeEasy:
		return 5, nil
	}
	return 0, fmt.Errorf("%w: unknown grade %q", ErrInvalidInput, grade)
}

// ComputeGrade derives the grade from session-observable signals. The
// verdict collaborator supplies only boolean resolution signals; grading
// stays deterministic and auditable here.
//
// A revealed answer is a failed recall regardless of attempt count.
// Otherwise: first-attempt success is easy, 2-3 attempts good, 4+ hard.
func ComputeGrade(revealed bool, attemptCount int) (Grade, error) {
	if attemptCount < 1 {
		return "", fmt.Errorf("%w: attemptCount must be >= 1, got %d", ErrInvalidInput, attemptCount)
	}

	if revealed {
		return GradeAgain, nil
	}

	switch {
	case attemptCount == 1:
		return GradeEasy, nil
	case attemptCount <= 3:
		return GradeGood, nil
	default:
		return GradeHard, nil
	}
}
