package retry

import (
	"context"
	"errors"
	"time"

	"github.com/parmira/forensic"
)

// Attempt describes a failed attempt that is about to be retried.
type Attempt struct {
	// Number is the attempt that failed (1-indexed).
	Number int

	// MaxAttempts is the total number of attempts allowed.
	MaxAttempts int

	// Delay is the wait before the next attempt.
	Delay time.Duration

	// Err is the transient error that triggered the retry.
	Err error
}

// Do calls fn until it succeeds, fails with a non-transient error, or the
// attempts in cfg run out. onRetry, when non-nil, is called before each
// backoff wait. The wait honors ctx and any Retry-After hint carried by a
// [forensic.CategorizedError] that asks for longer than the backoff.
func Do[T any](ctx context.Context, cfg Config, onRetry func(Attempt), fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	maxAttempts := cfg.attempts()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsTransient(err) || attempt == maxAttempts-1 {
			return zero, err
		}

		delay := effectiveDelay(cfg.Delay(attempt), err)
		if onRetry != nil {
			onRetry(Attempt{Number: attempt + 1, MaxAttempts: maxAttempts, Delay: delay, Err: err})
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// effectiveDelay returns the delay to use, honoring the server's Retry-After if larger.
func effectiveDelay(configured time.Duration, err error) time.Duration {
	var ce forensic.CategorizedError
	if errors.As(err, &ce) && ce.RetryAfter() > configured {
		return ce.RetryAfter()
	}
	return configured
}
