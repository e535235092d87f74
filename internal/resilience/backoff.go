package resilience

import (
	"context"
	"time"
)

// Backoff retries an operation with exponentially growing delays.
type Backoff struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultBackoff returns the retry policy used for notification delivery.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts:   3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Retry runs fn until it succeeds, attempts run out, or ctx is done. The
// last error is returned.
func (b Backoff) Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := b.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	delay := b.InitialDelay

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		// Don't sleep after the last attempt
		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * b.BackoffFactor)
		if b.MaxDelay > 0 && delay > b.MaxDelay {
			delay = b.MaxDelay
		}
	}

	return lastErr
}
