package util

import (
	"context"
	"time"
)

// NextTick returns the first multiple of interval (counted from the Unix
// epoch) strictly after t. Non-positive intervals return t unchanged.
func NextTick(t time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		return t
	}
	next := t.Truncate(interval)
	if !next.After(t) {
		next = next.Add(interval)
	}
	return next
}

// SleepUntil blocks until at, or until ctx is done.
func SleepUntil(ctx context.Context, at time.Time) error {
	d := time.Until(at)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
