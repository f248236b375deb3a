package engine

// StopReason explains why a run finished.
type StopReason string

const (
	StopMaxSteps  StopReason = "maxSteps"
	StopDone      StopReason = "done"
	StopError     StopReason = "error"
	StopCancelled StopReason = "cancelled"
)

// Decision is a controller verdict: keep looping, or stop with a reason.
type Decision struct {
	Stop   bool
	Reason StopReason
}

// ContinueRun is the keep-going decision.
func ContinueRun() Decision { return Decision{} }

// StopRun halts the loop with the given reason.
func StopRun(reason StopReason) Decision { return Decision{Stop: true, Reason: reason} }

// Controller is a pure decision function over the run state, re-evaluated
// by the loop each iteration. It must not mutate the run.
type Controller func(run *Run) Decision

// MaxStepsController stops once the recorded step count reaches n.
func MaxStepsController(n int) Controller {
	return func(run *Run) Decision {
		if run.StepCount() >= n {
			return StopRun(StopMaxSteps)
		}
		return ContinueRun()
	}
}

// ComposeControllers runs controllers in order; the first stop verdict wins.
func ComposeControllers(controllers ...Controller) Controller {
	return func(run *Run) Decision {
		for _, c := range controllers {
			if d := c(run); d.Stop {
				return d
			}
		}
		return ContinueRun()
	}
}
