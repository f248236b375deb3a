package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ActionFunc is the capability an action exposes. It receives validated
// input and the run for context, and may fail.
type ActionFunc func(ctx context.Context, input map[string]any, run *Run) (map[string]any, error)

// FormatFunc turns a summary seed and the action output into the final
// human-readable summary shown to the model. Summaries, not raw output,
// are what later prompts see, keeping prompt size bounded.
type FormatFunc func(seed string, output map[string]any) string

// Action is an immutable descriptor for one pluggable capability.
type Action struct {
	ID           string
	Description  string // model-facing
	InputSchema  string // JSON schema source; empty means any input
	OutputSchema string // optional; violations are execution failures
	InputExample map[string]any
	Execute      ActionFunc
	FormatResult FormatFunc
}

// ValidateInput checks input against the action's input schema.
func (a Action) ValidateInput(input map[string]any) error {
	return a.validate(a.InputSchema, input)
}

// ValidateOutput checks output against the action's output schema, if set.
func (a Action) ValidateOutput(output map[string]any) error {
	return a.validate(a.OutputSchema, output)
}

func (a Action) validate(schema string, doc map[string]any) error {
	if schema == "" {
		return nil
	}
	if doc == nil {
		doc = map[string]any{}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, verr := range result.Errors() {
			msgs = append(msgs, verr.String())
		}
		return &ActionValidationError{ActionID: a.ID, Errors: msgs}
	}
	return nil
}

// Registry maps action ids to descriptors. Ids are unique within a registry.
type Registry map[string]Action

// NewRegistry builds a registry from the given actions, rejecting duplicate
// or empty ids.
func NewRegistry(actions ...Action) (Registry, error) {
	reg := make(Registry, len(actions))
	for _, a := range actions {
		if err := reg.Register(a); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Register adds one action; the id must be unique.
func (r Registry) Register(a Action) error {
	if a.ID == "" {
		return fmt.Errorf("action id must not be empty")
	}
	if _, exists := r[a.ID]; exists {
		return fmt.Errorf("action %q already registered", a.ID)
	}
	if a.Execute == nil {
		return fmt.Errorf("action %q has no execute function", a.ID)
	}
	r[a.ID] = a
	return nil
}

// IDs returns the registered action ids, sorted.
func (r Registry) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispatch resolves and runs one proposed invocation. Unknown ids, schema
// violations, and execution errors all come back as classified *StepError
// values so the loop can recover them as failed steps the model can read.
// Invalid input never reaches Execute.
func (r Registry) Dispatch(ctx context.Context, run *Run, actionID string, input map[string]any) (string, map[string]any, error) {
	action, ok := r[actionID]
	if !ok {
		return "", nil, NewStepError(FailureUnknownAction,
			fmt.Errorf("no action named %q", actionID),
			"available actions: "+strings.Join(r.IDs(), ", "))
	}

	if err := action.ValidateInput(input); err != nil {
		return "", nil, NewStepError(FailureInvalidInput, err,
			fmt.Sprintf("fix the input for %q to match its schema", actionID))
	}

	output, err := action.Execute(ctx, input, run)
	if err != nil {
		return "", nil, NewStepError(FailureExecution, err, "")
	}

	if err := action.ValidateOutput(output); err != nil {
		// The action broke its own contract; the model cannot fix this.
		return "", nil, NewStepError(FailureExecution, err, "")
	}

	seed := fmt.Sprintf("%s succeeded", actionID)
	summary := seed
	if action.FormatResult != nil {
		summary = action.FormatResult(seed, output)
	} else if len(output) > 0 {
		summary = seed + ": " + compactJSON(output)
	}
	return summary, output, nil
}

// compactJSON renders output for a default summary, truncated so prompt
// growth stays bounded even without a custom formatter.
func compactJSON(v map[string]any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	const limit = 500
	if len(data) > limit {
		return string(data[:limit]) + "...(truncated)"
	}
	return string(data)
}
