package engine

import "time"

// DefaultMaxSteps is the step limit applied when no controller is supplied.
const DefaultMaxSteps = 30

// DefaultRetryPolicy returns the standard model-call backoff: four attempts
// total, 1s base delay doubling up to 30s, with jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      true,
	}
}
