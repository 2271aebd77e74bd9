// Package clock supplies the single source of "now" for the pipeline.
//
// Detectors and the Statistical Kernel never read the system clock directly;
// every date-relative computation flows from a Clock handed in at
// construction time. This is the fix for the original system's mixed
// "today"/"yesterday"/"now" semantics (see SPEC_FULL.md §2 Module map).
package clock

import "time"

// Clock supplies the reference instant a pipeline run is "for".
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock, truncated to a UTC calendar day.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// FixedClock returns a constant instant. Used by tests.
type FixedClock struct {
	At time.Time
}

func (f FixedClock) Now() time.Time {
	return f.At
}

// NewFixedClock parses a "YYYY-MM-DD" date into a FixedClock.
func NewFixedClock(isoDate string) (FixedClock, error) {
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return FixedClock{}, err
	}
	return FixedClock{At: t.UTC()}, nil
}
