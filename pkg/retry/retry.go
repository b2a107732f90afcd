// Package retry provides bounded retry with exponential backoff for remote
// service calls. The retry budget belongs to the client issuing the call;
// the execution engine never retries a failed step itself.
package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultMaxRetries   = 4
	defaultInitialDelay = 500 * time.Millisecond
	defaultMaxDelay     = 30 * time.Second
)

// Operation is one attemptable call.
type Operation func() error

// Option configures a retry loop.
type Option func(*options)

type options struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
	retryable    func(error) bool
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(o *options) { o.initialDelay = d }
}

// WithMaxDelay caps the backoff delay.
func WithMaxDelay(d time.Duration) Option {
	return func(o *options) { o.maxDelay = d }
}

// WithRetryable restricts retries to errors the predicate accepts. Other
// errors abort the loop immediately.
func WithRetryable(f func(error) bool) Option {
	return func(o *options) { o.retryable = f }
}

// WithExponentialBackoff runs op until it succeeds, the attempt budget is
// exhausted, the error is not retryable, or the context is cancelled. The
// delay doubles after each failed attempt.
func WithExponentialBackoff(ctx context.Context, op Operation, opts ...Option) error {
	o := options{
		maxRetries:   defaultMaxRetries,
		initialDelay: defaultInitialDelay,
		maxDelay:     defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(&o)
	}

	delay := o.initialDelay
	var lastErr error

	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if o.retryable != nil && !o.retryable(lastErr) {
			return lastErr
		}
		if attempt == o.maxRetries {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if delay > o.maxDelay {
			delay = o.maxDelay
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", o.maxRetries+1, lastErr)
}
