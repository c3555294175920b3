package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout bounds one call to fn. It is synchronous: fn gets a derived
// context and must return when that context ends. A non-positive timeout
// leaves ctx as is.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(callCtx)
	switch {
	case err == nil || callCtx.Err() == nil:
		return err
	case ctx.Err() != nil:
		return fmt.Errorf("%s: cancelled: %w", name, ctx.Err())
	default:
		return fmt.Errorf("%s: no reply within %v: %w", name, timeout, context.DeadlineExceeded)
	}
}
