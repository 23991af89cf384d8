package beat

import (
	"context"
	"time"
)

// Clock abstracts wall time so trackers and schedulers can be driven by
// a fake clock in tests.
type Clock interface {
	Now() time.Time

	// SleepUntil blocks until the instant or context cancellation,
	// whichever comes first. Instants in the past return immediately.
	SleepUntil(ctx context.Context, t time.Time) error
}

// SystemClock is the real wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// SleepUntil waits for the instant using a timer.
func (SystemClock) SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
