// Package engine implements the step execution state machine and the
// control loop that drives it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FailureKind classifies why a step failed. Kinds other than
// FailureModelCall are recovered locally as failed steps and never
// terminate the run.
type FailureKind string

const (
	FailureUnknownAction FailureKind = "unknown_action"    // model referenced a non-existent action id
	FailureInvalidInput  FailureKind = "invalid_input"     // input failed schema validation
	FailureExecution     FailureKind = "execution_failure" // the action's own logic failed
	FailureFormat        FailureKind = "format_error"      // model output mapped to no recognized intent
	FailureModelCall     FailureKind = "model_exhausted"   // retry wrapper exhausted retries; fatal
)

// StepError is a classified step failure. Hint is the model-facing
// correction text folded into the step summary.
type StepError struct {
	Kind FailureKind
	Err  error
	Hint string
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *StepError) Unwrap() error { return e.Err }

// Summary renders the failure as a line legible to the model.
func (e *StepError) Summary() string {
	var b strings.Builder
	b.WriteString("ERROR (")
	b.WriteString(string(e.Kind))
	b.WriteString(")")
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Hint != "" {
		b.WriteString(". ")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// NewStepError creates a classified step failure.
func NewStepError(kind FailureKind, err error, hint string) *StepError {
	return &StepError{Kind: kind, Err: err, Hint: hint}
}

// AsStepError returns err as a *StepError, wrapping unclassified errors as
// execution failures.
func AsStepError(err error) *StepError {
	var serr *StepError
	if errors.As(err, &serr) {
		return serr
	}
	return &StepError{Kind: FailureExecution, Err: err}
}

// RetryClass indicates whether a model-call error should be retried.
type RetryClass string

const (
	RetryClassRetryable RetryClass = "retryable"
	RetryClassFatal     RetryClass = "fatal"
)

// ModelError wraps a provider error with classification metadata.
type ModelError struct {
	Err         error
	Class       RetryClass
	HTTPStatus  int    // HTTP status code if applicable
	RetryAfter  string // Retry-After header value if present
	IsRateLimit bool
	IsTimeout   bool
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("model error: %s", e.Class)
}

func (e *ModelError) Unwrap() error { return e.Err }

// WrapModelError wraps a provider error with classification metadata so the
// retry wrapper does not have to guess from error strings.
func WrapModelError(err error, httpStatus int, retryAfter string) error {
	if err == nil {
		return nil
	}
	class := ClassifyModelError(err)
	switch {
	case httpStatus == http.StatusTooManyRequests || httpStatus >= 500:
		class = RetryClassRetryable
	case httpStatus >= 400 && httpStatus < 500:
		class = RetryClassFatal
	}
	return &ModelError{
		Err:         err,
		Class:       class,
		HTTPStatus:  httpStatus,
		RetryAfter:  retryAfter,
		IsRateLimit: httpStatus == http.StatusTooManyRequests,
		IsTimeout:   httpStatus == http.StatusRequestTimeout || httpStatus == http.StatusGatewayTimeout,
	}
}

// ClassifyModelError decides retryable vs fatal for a model-call error.
// Transient transport and rate-limit failures retry; auth, bad-request and
// deadline failures are fatal. A stalled call that exceeds its deadline is
// fatal rather than retried indefinitely.
func ClassifyModelError(err error) RetryClass {
	if err == nil {
		return RetryClassFatal
	}

	var modelErr *ModelError
	if errors.As(err, &modelErr) && modelErr.Class != "" {
		return modelErr.Class
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return RetryClassFatal
	}

	errStr := strings.ToLower(err.Error())

	// Rate limit (429) - retryable
	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") {
		return RetryClassRetryable
	}

	// Server errors (5xx) - retryable
	if strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "gateway timeout") {
		return RetryClassRetryable
	}

	// Deadline failures are fatal; other network hiccups retry
	if strings.Contains(errStr, "deadline exceeded") {
		return RetryClassFatal
	}
	if strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "network") {
		return RetryClassRetryable
	}

	// Auth (401, 403), bad request (400), quota (402) - fatal
	if strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "invalid api key") ||
		strings.Contains(errStr, "400") ||
		strings.Contains(errStr, "bad request") ||
		strings.Contains(errStr, "402") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "billing") {
		return RetryClassFatal
	}

	// Default: fatal for unknown errors
	return RetryClassFatal
}

// RetryExhaustedError indicates that all retry attempts have been used up.
type RetryExhaustedError struct {
	Err         error
	Attempts    int
	MaxAttempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// IsRetryExhausted checks if an error is a RetryExhaustedError.
func IsRetryExhausted(err error) bool {
	var exhausted *RetryExhaustedError
	return errors.As(err, &exhausted)
}

// ActionValidationError indicates that action input or output failed JSON
// schema validation. The validator diagnostics are preserved for the model.
type ActionValidationError struct {
	ActionID string
	Errors   []string
}

func (e *ActionValidationError) Error() string {
	return fmt.Sprintf("action %s validation failed: %s", e.ActionID, strings.Join(e.Errors, "; "))
}
