package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"
)

const RetryStep = 2 * time.Second

// RetryDelay is the pause before the given 1-based attempt: nothing before
// the first, then a growing step plus up to a second of jitter.
func RetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	jitter := time.Duration(rand.N(1000)) * time.Millisecond //nolint:gosec
	return time.Duration(attempt-1)*RetryStep + jitter
}

// Wait sleeps for RetryDelay(attempt) and returns early with ctx's error
// when ctx ends first.
func Wait(ctx context.Context, attempt int) error {
	d := RetryDelay(attempt)
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
