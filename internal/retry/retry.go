// Package retry re-executes transient failures with exponential backoff.
package retry

import (
	"context"
	"time"

	apperrors "ticketline/internal/errors"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type options struct {
	maxAttempts int
	baseDelay   time.Duration
	sleep       SleepFunc
	onRetry     func(attempt int, delay time.Duration, err error)
}

// Option configures Do.
type Option func(*options)

// WithMaxAttempts sets the total number of invocations, including the first.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the delay before the second attempt; it doubles after each failure.
func WithBaseDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.baseDelay = d
		}
	}
}

// WithSleep replaces the context-aware timer sleep. Used by tests.
func WithSleep(fn SleepFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// WithOnRetry registers a hook called before each backoff sleep.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(o *options) {
		o.onRetry = fn
	}
}

// Do invokes op until it succeeds, returns a non-retryable error, or the attempt
// budget is spent. Only errors marked with errors.Retryable are repeated. The
// delay before attempt i+1 is baseDelay * 2^i. The last error is returned unmodified.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	_, err := Value(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := options{
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		result T
		err    error
	)
	for attempt := 0; attempt < o.maxAttempts; attempt++ {
		result, err = op(ctx)
		if err == nil {
			return result, nil
		}
		if !apperrors.IsRetryable(err) || attempt == o.maxAttempts-1 {
			return result, err
		}

		delay := o.baseDelay * time.Duration(1<<attempt)
		if o.onRetry != nil {
			o.onRetry(attempt+1, delay, err)
		}
		if sleepErr := o.sleep(ctx, delay); sleepErr != nil {
			return result, err
		}
	}
	return result, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
