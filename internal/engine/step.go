package engine

import (
	"context"
	"fmt"
	"time"
)

// StepStatus is the lifecycle state of a Step.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
)

// StepKind tags which variant of step this is.
type StepKind string

const (
	// StepAction invokes a registered action.
	StepAction StepKind = "action"
	// StepNoop does no work; used for plain noops and for "done" signals.
	StepNoop StepKind = "noop"
	// StepModel is synthesized by the driver when the model interaction itself
	// failed (unparseable output, exhausted retries).
	StepModel StepKind = "model"
)

// stepLogic performs the step's work. The summary it returns is echoed into
// future prompts, so it must stay legible to the model.
type stepLogic func(ctx context.Context, run *Run) (summary string, output map[string]any, err error)

// Step is one unit of work in a Run. Its status moves pending → running →
// {succeeded, failed} exactly once; all mutation goes through Execute.
type Step struct {
	Kind    StepKind
	Ordinal int // position in the Run, set on append

	status     StepStatus
	summary    string
	output     map[string]any
	failure    *StepError
	done       bool
	logic      stepLogic
	startedAt  time.Time
	finishedAt time.Time
}

func newStep(kind StepKind, done bool, logic stepLogic) *Step {
	return &Step{
		Kind:   kind,
		status: StatusPending,
		done:   done,
		logic:  logic,
	}
}

// NewActionStep builds a pending step that dispatches (actionID, input)
// through the registry when executed.
func NewActionStep(reg Registry, actionID string, input map[string]any) *Step {
	return newStep(StepAction, false, func(ctx context.Context, run *Run) (string, map[string]any, error) {
		return reg.Dispatch(ctx, run, actionID, input)
	})
}

// NewNoopStep builds a step that performs no work and succeeds with the given
// summary. When done is true, its success terminates the run regardless of
// the controller.
func NewNoopStep(summary string, done bool) *Step {
	return newStep(StepNoop, done, func(ctx context.Context, run *Run) (string, map[string]any, error) {
		return summary, nil, nil
	})
}

// NewFormatErrorStep builds a step that fails with a format-error
// classification. Its summary tells the model how to correct itself.
func NewFormatErrorStep(parseErr error) *Step {
	serr := NewStepError(FailureFormat, parseErr,
		`your last response could not be parsed; reply with exactly one JSON object of the form {"action":"<id>","input":{...}}`)
	return newStep(StepModel, false, func(ctx context.Context, run *Run) (string, map[string]any, error) {
		return "", nil, serr
	})
}

// newModelFailureStep records a fatal model-call failure in the step history
// so the run's final state explains why it stopped.
func newModelFailureStep(callErr error) *Step {
	serr := NewStepError(FailureModelCall, callErr, "model call failed after exhausting retries")
	return newStep(StepModel, false, func(ctx context.Context, run *Run) (string, map[string]any, error) {
		return "", nil, serr
	})
}

// Execute drives the step to a terminal status. Action errors and panics are
// captured as a failed result and never propagate; a non-nil return means the
// step was not pending, which indicates a driver bug.
func (s *Step) Execute(ctx context.Context, run *Run) error {
	if s.status != StatusPending {
		return fmt.Errorf("step %d re-executed while %s: driver bug", s.Ordinal, s.status)
	}
	s.status = StatusRunning
	s.startedAt = time.Now()

	summary, output, err := s.runLogic(ctx, run)
	s.finishedAt = time.Now()

	if err != nil {
		serr := AsStepError(err)
		s.status = StatusFailed
		s.failure = serr
		s.summary = summary
		if s.summary == "" {
			s.summary = serr.Summary()
		}
		return nil
	}

	s.status = StatusSucceeded
	s.summary = summary
	s.output = output
	return nil
}

func (s *Step) runLogic(ctx context.Context, run *Run) (summary string, output map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			summary, output = "", nil
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	if s.logic == nil {
		return "", nil, nil
	}
	return s.logic(ctx, run)
}

// Status returns the current lifecycle state.
func (s *Step) Status() StepStatus { return s.status }

// Terminal reports whether the step has reached a final status.
func (s *Step) Terminal() bool {
	return s.status == StatusSucceeded || s.status == StatusFailed
}

// Summary is the human-readable description fed back into future prompts.
func (s *Step) Summary() string { return s.summary }

// Output is the structured result of a succeeded step, if any.
func (s *Step) Output() map[string]any { return s.output }

// Failure returns the classified error of a failed step, nil otherwise.
func (s *Step) Failure() *StepError { return s.failure }

// IsDone reports whether this step's success should terminate the run
// regardless of the controller.
func (s *Step) IsDone() bool { return s.done }

// StartedAt returns when Execute began, zero if still pending.
func (s *Step) StartedAt() time.Time { return s.startedAt }

// FinishedAt returns when Execute completed, zero if not terminal.
func (s *Step) FinishedAt() time.Time { return s.finishedAt }
