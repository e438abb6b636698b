package ctxutil

import (
	"context"
	"time"
)

// WithDelayedTimeout returns a context that keeps parent's values but ends
// delay after parent ends, or when cancel is called.
func WithDelayedTimeout(parent context.Context, delay time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	stop := context.AfterFunc(parent, func() {
		time.AfterFunc(delay, cancel)
	})
	return ctx, func() {
		stop()
		cancel()
	}
}
