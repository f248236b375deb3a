package engine

import (
	"context"
	"time"
)

// Event is a loop lifecycle notification flattened for transport to a UI.
type Event struct {
	Kind string // "step_start", "step_done", "run_done", "model_call", "retry_attempt"
	Data any
}

// ChannelObserver bridges loop events onto a channel, e.g. for a TUI.
// Give it a buffered channel; a full channel drops the event rather than
// blocking the loop.
type ChannelObserver struct {
	Ch chan<- Event
}

func (o ChannelObserver) send(e Event) error {
	select {
	case o.Ch <- e:
	default:
	}
	return nil
}

func (o ChannelObserver) OnStepStarted(_ context.Context, _ *Run, step *Step) error {
	return o.send(Event{Kind: "step_start", Data: map[string]any{
		"step": step.Ordinal,
		"kind": string(step.Kind),
	}})
}

func (o ChannelObserver) OnStepFinished(_ context.Context, _ *Run, step *Step) error {
	return o.send(Event{Kind: "step_done", Data: map[string]any{
		"step":    step.Ordinal,
		"status":  string(step.Status()),
		"summary": step.Summary(),
	}})
}

func (o ChannelObserver) OnRunFinished(_ context.Context, run *Run, reason StopReason, err error) error {
	data := map[string]any{
		"reason": string(reason),
		"steps":  run.StepCount(),
	}
	if err != nil {
		data["error"] = err.Error()
	}
	return o.send(Event{Kind: "run_done", Data: data})
}

func (o ChannelObserver) OnModelCall(_ context.Context, _ *Run, call RecordedCall) error {
	return o.send(Event{Kind: "model_call", Data: map[string]any{
		"model":   call.Model,
		"success": call.Success,
		"tokens":  call.Usage.Total,
	}})
}

func (o ChannelObserver) OnRetryAttempt(_ context.Context, _ *Run, attempt int, delay time.Duration, err error) error {
	return o.send(Event{Kind: "retry_attempt", Data: map[string]any{
		"attempt": attempt,
		"delay":   delay.String(),
		"error":   err.Error(),
	}})
}
