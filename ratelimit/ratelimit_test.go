package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unchained-app/unchained/ratelimit"
)

func TestRetryDelay(t *testing.T) {
	t.Parallel()
	require.Zero(t, ratelimit.RetryDelay(0))
	require.Zero(t, ratelimit.RetryDelay(1))
	for attempt := 2; attempt <= 4; attempt++ {
		for range 100 {
			d := ratelimit.RetryDelay(attempt)
			lower := time.Duration(attempt-1) * ratelimit.RetryStep
			require.GreaterOrEqual(t, d, lower)
			require.Less(t, d, lower+time.Second)
		}
	}
}

func TestWait(t *testing.T) {
	t.Parallel()

	t.Run("FirstAttempt", func(t *testing.T) {
		t.Parallel()
		start := time.Now()
		require.NoError(t, ratelimit.Wait(t.Context(), 1))
		require.Less(t, time.Since(start), ratelimit.RetryStep)
	})

	t.Run("Canceled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		time.AfterFunc(50*time.Millisecond, cancel)

		start := time.Now()
		err := ratelimit.Wait(ctx, 3)
		require.ErrorIs(t, err, context.Canceled)
		require.Less(t, time.Since(start), ratelimit.RetryStep)
	})

	t.Run("AlreadyCanceled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		require.ErrorIs(t, ratelimit.Wait(ctx, 1), context.Canceled)
	})
}
