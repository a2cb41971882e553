package httputil

import (
	"context"
	"errors"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network errors, timeouts, 5xx responses) with this
// type so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a [RetryableError]. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is wrapped with [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Retry executes fn up to attempts times, immediately, with no delay between
// attempts. It only retries errors wrapped with [RetryableError]; other
// errors are returned immediately. Returns the last error if all attempts
// fail, or ctx.Err() if ctx is cancelled between attempts.
func Retry(ctx context.Context, attempts int, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return lastErr
}
