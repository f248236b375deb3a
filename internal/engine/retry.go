package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy defines backoff behavior for model calls.
type RetryPolicy struct {
	MaxAttempts int           // total attempts including the first (minimum 1)
	BaseDelay   time.Duration // delay before the first retry
	MaxDelay    time.Duration // cap applied after exponentiation
	Jitter      bool          // add up to 20% random variation to each delay
}

// Delay computes the backoff before retry k (0-indexed): base * 2^k, capped
// at MaxDelay, then jittered.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if max := float64(p.MaxDelay); p.MaxDelay > 0 && delay > max {
		delay = max
	}
	if p.Jitter {
		delay += rand.Float64() * 0.2 * delay
	}
	return time.Duration(delay)
}

// RetryableFunc is a function that can be retried.
type RetryableFunc[T any] func(ctx context.Context) (T, error)

// Retry executes fn until it succeeds, fails fatally, or the attempt budget
// runs out. classify decides retryable vs fatal; fatal errors propagate
// immediately, and exhaustion surfaces the last error inside a
// RetryExhaustedError. onRetry fires before each backoff sleep.
func Retry[T any](
	ctx context.Context,
	policy RetryPolicy,
	fn RetryableFunc[T],
	classify func(error) RetryClass,
	onRetry func(attempt int, delay time.Duration, err error),
) (T, error) {
	var zero T
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if classify(err) == RetryClassFatal {
			return zero, err
		}

		if attempt >= policy.MaxAttempts {
			return zero, &RetryExhaustedError{Err: err, Attempts: attempt, MaxAttempts: policy.MaxAttempts}
		}

		delay := policy.Delay(attempt - 1)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("cancelled during retry backoff: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
}
