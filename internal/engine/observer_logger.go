package engine

import (
	"context"
	"time"

	"github.com/go-logr/logr"
)

// LoggerObserver logs lifecycle events through logr.
type LoggerObserver struct {
	Log logr.Logger
}

func (o LoggerObserver) OnStepStarted(_ context.Context, run *Run, step *Step) error {
	o.Log.V(1).Info("step started", "run", run.ID, "step", step.Ordinal, "kind", step.Kind)
	return nil
}

func (o LoggerObserver) OnStepFinished(_ context.Context, run *Run, step *Step) error {
	if failure := step.Failure(); failure != nil {
		o.Log.Info("step failed",
			"run", run.ID, "step", step.Ordinal, "kind", step.Kind,
			"failure", failure.Kind, "summary", step.Summary())
		return nil
	}
	o.Log.Info("step finished",
		"run", run.ID, "step", step.Ordinal, "kind", step.Kind,
		"status", step.Status(), "summary", step.Summary())
	return nil
}

func (o LoggerObserver) OnRunFinished(_ context.Context, run *Run, reason StopReason, err error) error {
	usage := run.Usage()
	kv := []any{
		"run", run.ID, "reason", reason,
		"steps", run.StepCount(), "calls", run.CallCount(), "tokens", usage.Total,
	}
	if err != nil {
		o.Log.Error(err, "run finished", kv...)
		return nil
	}
	o.Log.Info("run finished", kv...)
	return nil
}

func (o LoggerObserver) OnModelCall(_ context.Context, run *Run, call RecordedCall) error {
	o.Log.V(1).Info("model call",
		"run", run.ID, "model", call.Model, "success", call.Success,
		"prompt_tokens", call.Usage.Prompt, "completion_tokens", call.Usage.Completion)
	return nil
}

func (o LoggerObserver) OnRetryAttempt(_ context.Context, run *Run, attempt int, delay time.Duration, err error) error {
	o.Log.Info("retrying model call", "run", run.ID, "attempt", attempt, "delay", delay, "error", err.Error())
	return nil
}
