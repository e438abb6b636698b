package ctxutil_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/unchained-app/unchained/ctxutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type key struct{}

func TestWithDelayedTimeout(t *testing.T) {
	t.Parallel()

	t.Run("keeps_values", func(t *testing.T) {
		t.Parallel()

		parent := context.WithValue(t.Context(), key{}, "deck")
		ctx, cancel := ctxutil.WithDelayedTimeout(parent, time.Second)
		defer cancel()

		require.Equal(t, "deck", ctx.Value(key{}))
		require.NoError(t, ctx.Err())
	})

	t.Run("ends_after_delay", func(t *testing.T) {
		t.Parallel()

		parent, parentCancel := context.WithCancel(t.Context())
		const delay = 100 * time.Millisecond
		ctx, cancel := ctxutil.WithDelayedTimeout(parent, delay)
		defer cancel()

		start := time.Now()
		parentCancel()
		require.NoError(t, ctx.Err())

		select {
		case <-ctx.Done():
			require.GreaterOrEqual(t, time.Since(start), delay)
		case <-time.After(delay + time.Second):
			require.Fail(t, "context did not end after the delay")
		}
	})

	t.Run("cancel_ends_immediately", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := ctxutil.WithDelayedTimeout(t.Context(), time.Hour)
		cancel()
		require.ErrorIs(t, ctx.Err(), context.Canceled)
	})
}
