package srs

import (
	"errors"
	"testing"
	"time"
)

func TestDueAt_ExactOffsets(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		grade Grade
		want  time.Time
	}{
		{GradeAgain, now.Add(2 * time.Minute)},
		{GradeHard, now.Add(10 * time.Minute)},
		{GradeGood, now.Add(24 * time.Hour)},
		{GradeEasy, now.Add(4 * 24 * time.Hour)},
	}
	for _, tt := range tests {
		got, err := DueAt(now, tt.grade)
		if err != nil {
			t.Fatalf("DueAt(%q) error: %v", tt.grade, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("DueAt(%q) = %v, want %v", tt.grade, got, tt.want)
		}
	}
}

func TestDueAt_MonthRollover(t *testing.T) {
	// Grading easy just before midnight on the last day of the month must
	// land in the next month, across a UTC day boundary.
	now := time.Date(2025, 1, 31, 23, 59, 30, 0, time.UTC)
	got, err := DueAt(now, GradeEasy)
	if err != nil {
		t.Fatalf("DueAt error: %v", err)
	}
	want := time.Date(2025, 2, 4, 23, 59, 30, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DueAt = %v, want %v", got, want)
	}
}

func TestDueAt_TruncatesToSecond(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 123456789, time.UTC)
	got, err := DueAt(now, GradeAgain)
	if err != nil {
		t.Fatalf("DueAt error: %v", err)
	}
	if got.Nanosecond() != 0 {
		t.Errorf("DueAt nanoseconds = %d, want 0", got.Nanosecond())
	}
}

func TestDueAt_NonUTCInput(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2025, 6, 15, 11, 30, 0, 0, loc)
	got, err := DueAt(now, GradeHard)
	if err != nil {
		t.Fatalf("DueAt error: %v", err)
	}
	want := time.Date(2025, 6, 15, 10, 40, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DueAt = %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("DueAt location = %v, want UTC", got.Location())
	}
}

func TestDueAt_UnknownGrade(t *testing.T) {
	if _, err := DueAt(time.Now(), Grade("fine")); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("DueAt(fine) err = %v, want ErrInvalidInput", err)
	}
}
