package interview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hireloop/interviewd/internal/domain"
)

// callWithRetry runs fn with a per-attempt timeout and bounded exponential
// backoff. Transient provider failures and timeouts are retried up to
// attempts tries; input and state errors fail fast. The caller's context
// cancels both the call and any backoff sleep.
func callWithRetry[T any](
	ctx context.Context,
	attempts int,
	backoff, timeout time.Duration,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff<<(attempt-1)); err != nil {
				return zero, err
			}
		}

		out, err := runBounded(ctx, timeout, fn)
		if err == nil {
			return out, nil
		}
		if !isRetriable(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

// runBounded executes one attempt under its own deadline, mapping that
// deadline's expiry to ErrProviderTimeout. Parent-context cancellation is
// passed through untouched.
func runBounded[T any](
	ctx context.Context,
	timeout time.Duration,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	callCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	out, err := fn(callCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		var zero T
		return zero, fmt.Errorf("call exceeded %s: %w", timeout, domain.ErrProviderTimeout)
	}
	return out, err
}

func isRetriable(err error) bool {
	return errors.Is(err, domain.ErrProviderTimeout) ||
		errors.Is(err, domain.ErrEmbeddingUnavailable) ||
		errors.Is(err, domain.ErrGenerationUnavailable)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
