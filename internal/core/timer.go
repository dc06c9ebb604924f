package core

import "time"

// FixedStep reports when a wall-clock interval has elapsed. Long runs use it
// to rate-limit progress output.
type FixedStep struct {
	step time.Duration
	last time.Time
	now  func() time.Time
}

// NewFixedStep constructs a FixedStep that fires at most once per interval.
// Non-positive intervals default to ten seconds.
func NewFixedStep(interval time.Duration) *FixedStep {
	return newFixedStep(interval, time.Now)
}

func newFixedStep(interval time.Duration, now func() time.Time) *FixedStep {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &FixedStep{step: interval, now: now, last: now()}
}

// ShouldStep reports whether a full interval has passed since the last time it
// returned true.
func (f *FixedStep) ShouldStep() bool {
	now := f.now()
	if now.Sub(f.last) < f.step {
		return false
	}
	f.last = now
	return true
}
