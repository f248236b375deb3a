package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordedCall is one model invocation attempt, successful or not. Entries
// are appended by the retry wrapper and never mutated afterwards, so the
// ledger reflects retries, not just final outcomes.
type RecordedCall struct {
	ID        string
	Model     string
	Prompt    string
	Response  string
	Usage     TokenUsage
	Success   bool
	Error     string
	Timestamp time.Time
}

// Run is one end-to-end execution of the loop: run-scoped properties, the
// ordered step history, and the ledger of recorded model calls. A Run is
// owned by a single loop execution and must not be shared across loops.
type Run struct {
	ID        string
	Props     any // opaque to the engine, passed through to collaborators
	CreatedAt time.Time

	steps  []*Step
	ledger []RecordedCall
}

// NewRun creates an empty run around the given properties.
func NewRun(props any) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Props:     props,
		CreatedAt: time.Now(),
	}
}

// appendStep assigns the next ordinal and adds the step to history. The
// previous step must already be terminal; only one step runs at a time.
func (r *Run) appendStep(s *Step) error {
	if n := len(r.steps); n > 0 && !r.steps[n-1].Terminal() {
		return fmt.Errorf("step %d appended while step %d is %s: driver bug",
			n, n-1, r.steps[n-1].Status())
	}
	s.Ordinal = len(r.steps)
	r.steps = append(r.steps, s)
	return nil
}

// Steps returns the ordered step history. The returned slice is a copy;
// the steps themselves are live.
func (r *Run) Steps() []*Step {
	out := make([]*Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// StepCount returns the number of steps recorded so far.
func (r *Run) StepCount() int { return len(r.steps) }

// LastStep returns the most recent step, or nil for a fresh run.
func (r *Run) LastStep() *Step {
	if len(r.steps) == 0 {
		return nil
	}
	return r.steps[len(r.steps)-1]
}

// Record appends one model-call attempt to the ledger.
func (r *Run) Record(call RecordedCall) {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	r.ledger = append(r.ledger, call)
}

// Ledger returns a copy of the recorded model calls in order.
func (r *Run) Ledger() []RecordedCall {
	out := make([]RecordedCall, len(r.ledger))
	copy(out, r.ledger)
	return out
}

// CallCount returns the number of recorded model-call attempts.
func (r *Run) CallCount() int { return len(r.ledger) }

// Usage sums token usage across every recorded call, retries included.
func (r *Run) Usage() TokenUsage {
	var total TokenUsage
	for _, c := range r.ledger {
		total.Prompt += c.Usage.Prompt
		total.Completion += c.Usage.Completion
		total.Total += c.Usage.Total
	}
	return total
}
