package engine

import (
	"context"
	"fmt"
	"time"
)

// Observer receives lifecycle notifications from the loop. Hooks may return
// an error; observer failures are isolated and reported separately, never
// allowed to affect step or run state.
type Observer interface {
	OnStepStarted(ctx context.Context, run *Run, step *Step) error
	OnStepFinished(ctx context.Context, run *Run, step *Step) error
	OnRunFinished(ctx context.Context, run *Run, reason StopReason, err error) error
	OnModelCall(ctx context.Context, run *Run, call RecordedCall) error
	OnRetryAttempt(ctx context.Context, run *Run, attempt int, delay time.Duration, err error) error
}

// NopObserver lets you implement only the hooks you need.
type NopObserver struct{}

func (NopObserver) OnStepStarted(context.Context, *Run, *Step) error                   { return nil }
func (NopObserver) OnStepFinished(context.Context, *Run, *Step) error                  { return nil }
func (NopObserver) OnRunFinished(context.Context, *Run, StopReason, error) error       { return nil }
func (NopObserver) OnModelCall(context.Context, *Run, RecordedCall) error              { return nil }
func (NopObserver) OnRetryAttempt(context.Context, *Run, int, time.Duration, error) error {
	return nil
}

// Observers composes observers by fan-out: every registered observer's
// matching hook runs for every event, in registration order. Returned and
// panicking hooks are collected as errors instead of interrupting the fan-out.
type Observers []Observer

func (os Observers) StepStarted(ctx context.Context, run *Run, step *Step) []error {
	var errs []error
	for _, o := range os {
		if err := guard(func() error { return o.OnStepStarted(ctx, run, step) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (os Observers) StepFinished(ctx context.Context, run *Run, step *Step) []error {
	var errs []error
	for _, o := range os {
		if err := guard(func() error { return o.OnStepFinished(ctx, run, step) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (os Observers) RunFinished(ctx context.Context, run *Run, reason StopReason, runErr error) []error {
	var errs []error
	for _, o := range os {
		if err := guard(func() error { return o.OnRunFinished(ctx, run, reason, runErr) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (os Observers) ModelCall(ctx context.Context, run *Run, call RecordedCall) []error {
	var errs []error
	for _, o := range os {
		if err := guard(func() error { return o.OnModelCall(ctx, run, call) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (os Observers) RetryAttempt(ctx context.Context, run *Run, attempt int, delay time.Duration, attemptErr error) []error {
	var errs []error
	for _, o := range os {
		if err := guard(func() error { return o.OnRetryAttempt(ctx, run, attempt, delay, attemptErr) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func guard(hook func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer hook panicked: %v", r)
		}
	}()
	return hook()
}
