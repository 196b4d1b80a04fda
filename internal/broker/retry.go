package broker

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times with exponentially doubling backoff
// between failures. It returns nil on the first success, the last error
// when attempts are exhausted, or the context error if ctx ends first.
func Retry(ctx context.Context, attempts int, backoff time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := backoff
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
