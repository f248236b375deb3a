package engine

import (
	"context"
)

// Outcome is the final state of one loop execution: the run with its full
// step history and ledger, the stop reason, and the fatal error if any.
type Outcome struct {
	Run    *Run
	Reason StopReason
	Err    error // non-nil only when Reason is StopError
}

// Loop drives one run at a time to completion: generate a step, execute it,
// notify observers, consult the controller, repeat. Runs are independent;
// separate loops may execute concurrently as long as they do not share a Run.
type Loop struct {
	gen        *Generator
	controller Controller
	observers  Observers
	onObsErr   func(error)
}

// Execute runs the loop over fresh run state built around props. It always
// returns a non-nil Outcome carrying the full history; the error return is
// non-nil only for fatal model failures, mirrored in Outcome.Err.
func (l *Loop) Execute(ctx context.Context, props any) (*Outcome, error) {
	run := NewRun(props)
	return l.Resume(ctx, run)
}

// Resume runs the loop over an existing run, continuing its history. The
// run must not be shared with another executing loop.
func (l *Loop) Resume(ctx context.Context, run *Run) (*Outcome, error) {
	for {
		// Cancellation is only honored between steps; a finished step's
		// outcome stays intact.
		select {
		case <-ctx.Done():
			return l.finish(ctx, run, StopCancelled, nil)
		default:
		}

		if d := l.controller(run); d.Stop {
			return l.finish(ctx, run, d.Reason, nil)
		}

		step, err := l.gen.Next(ctx, run)
		if err != nil {
			// Fatal model failure. Record it as a failed step so the
			// history explains the stop, then surface the error.
			step = newModelFailureStep(err)
			l.runStep(ctx, run, step)
			return l.finish(ctx, run, StopError, err)
		}

		if derr := l.runStep(ctx, run, step); derr != nil {
			return l.finish(ctx, run, StopError, derr)
		}

		if step.IsDone() && step.Status() == StatusSucceeded {
			return l.finish(ctx, run, StopDone, nil)
		}
	}
}

func (l *Loop) runStep(ctx context.Context, run *Run, step *Step) error {
	if err := run.appendStep(step); err != nil {
		return err
	}
	l.report(l.observers.StepStarted(ctx, run, step))
	if err := step.Execute(ctx, run); err != nil {
		return err
	}
	l.report(l.observers.StepFinished(ctx, run, step))
	return nil
}

func (l *Loop) finish(ctx context.Context, run *Run, reason StopReason, err error) (*Outcome, error) {
	l.report(l.observers.RunFinished(ctx, run, reason, err))
	return &Outcome{Run: run, Reason: reason, Err: err}, err
}

func (l *Loop) report(errs []error) {
	if l.onObsErr == nil {
		return
	}
	for _, err := range errs {
		l.onObsErr(err)
	}
}
