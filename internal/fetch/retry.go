package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Retrier retries classified failures with capped exponential backoff.
//
// Delays never decrease between attempts: attempt n waits
// min(BaseDelay*2^(n-1), MaxDelay). Only RateLimited and NetworkError are
// retried; a key is attempted at most MaxRetries+1 times.
type Retrier struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Logger     *slog.Logger

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Delay returns the wait before retry number attempt (1-based).
func (r Retrier) Delay(attempt int) time.Duration {
	if attempt < 1 || r.BaseDelay <= 0 {
		return 0
	}
	d := r.BaseDelay
	for i := 1; i < attempt; i++ {
		if r.MaxDelay > 0 && d >= r.MaxDelay {
			break
		}
		d *= 2
	}
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	return d
}

// Attempts returns the maximum number of times a key is tried.
func (r Retrier) Attempts() int {
	if r.MaxRetries < 0 {
		return 1
	}
	return r.MaxRetries + 1
}

// Do calls fn until it succeeds, fails with a non-retryable error, the
// retry budget is spent, or ctx is done.
func (r Retrier) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	_, err := Retry(ctx, r, key, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Retry is Do for functions that return a value.
func Retry[T any](ctx context.Context, r Retrier, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	attempts := r.Attempts()

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := r.Delay(attempt)
			logger.Debug("retrying fetch",
				"key", key,
				"attempt", attempt,
				"backoff", delay,
				"kind", KindOf(lastErr),
			)
			if err := sleep(ctx, delay); err != nil {
				return zero, err
			}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if IsCanceled(err) && ctx.Err() != nil {
			return zero, ctx.Err()
		}

		lastErr = err
		if !KindOf(err).Retryable() {
			return zero, err
		}
	}

	if KindOf(lastErr) == RateLimited {
		return zero, &Error{
			Kind: NetworkError,
			Key:  key,
			Err:  fmt.Errorf("rate limited after %d attempts: %w", attempts, lastErr),
		}
	}
	return zero, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
