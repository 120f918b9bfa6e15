package resilience

import (
	"context"
	"time"
)

// ErrTimeout is returned when an operation does not complete within its
// allotted duration.
var ErrTimeout = New(ErrCodeTimeout, "operation timed out", nil)

// WithTimeout runs fn and returns ErrTimeout if it does not complete within
// duration. fn continues running in the background after a timeout (the
// runtime offers no hard cancellation for arbitrary work); its result is
// discarded.
func WithTimeout(ctx context.Context, duration time.Duration, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return New(ErrCodeTimeout, "operation \""+name+"\" timed out after "+duration.String(), ctx.Err())
	}
}

// WithTimeoutResult is the generic, value-returning counterpart.
func WithTimeoutResult[T any](ctx context.Context, duration time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		return zero, New(ErrCodeTimeout, "operation \""+name+"\" timed out after "+duration.String(), ctx.Err())
	}
}
