package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func testPrompt(props any, steps []*Step) string { return "next?" }

// scriptedModel replays canned responses (or errors) in order, repeating the
// last entry once the script runs out.
type scriptedModel struct {
	script []string
	errs   []error
	calls  int
}

func (m *scriptedModel) Complete(ctx context.Context, prompt string) (ModelResponse, error) {
	i := m.calls
	m.calls++
	if i >= len(m.script) {
		i = len(m.script) - 1
	}
	if i < len(m.errs) && m.errs[i] != nil {
		return ModelResponse{}, m.errs[i]
	}
	return ModelResponse{Text: m.script[i], Usage: TokenUsage{Prompt: 10, Completion: 5, Total: 15}}, nil
}

func buildLoop(t *testing.T, model ModelClient, reg Registry, maxSteps int) *Loop {
	t.Helper()
	loop, err := NewLoopBuilder().
		WithModel(model, "test-model").
		WithPromptBuilder(testPrompt).
		WithRegistry(reg).
		WithMaxSteps(maxSteps).
		WithRetryPolicy(fastPolicy()).
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return loop
}

func touchRegistry(t *testing.T) Registry {
	t.Helper()
	reg, err := NewRegistry(Action{
		ID:          "touch",
		Description: "marks a path as touched",
		InputSchema: pathSchema,
		Execute: func(ctx context.Context, input map[string]any, run *Run) (map[string]any, error) {
			return map[string]any{"path": input["path"]}, nil
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return reg
}

func TestLoopStopsAtMaxSteps(t *testing.T) {
	model := &scriptedModel{script: []string{`{"action":"noop"}`}}
	loop := buildLoop(t, model, nil, 3)

	out, err := loop.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out.Reason != StopMaxSteps {
		t.Errorf("reason = %s, want %s", out.Reason, StopMaxSteps)
	}

	steps := out.Run.Steps()
	if len(steps) != 3 {
		t.Fatalf("steps = %d, want exactly 3", len(steps))
	}
	for i, step := range steps {
		if step.Ordinal != i {
			t.Errorf("step %d has ordinal %d: history not gapless", i, step.Ordinal)
		}
		if !step.Terminal() {
			t.Errorf("step %d left in status %s", i, step.Status())
		}
		if step.Status() != StatusSucceeded {
			t.Errorf("noop step %d status = %s", i, step.Status())
		}
	}
	if out.Run.CallCount() != 3 {
		t.Errorf("ledger entries = %d, want 3", out.Run.CallCount())
	}
}

func TestLoopStopsOnDoneStep(t *testing.T) {
	model := &scriptedModel{script: []string{
		`{"action":"noop"}`,
		`{"action":"done","summary":"renamed the variable"}`,
	}}
	loop := buildLoop(t, model, nil, 50)

	out, err := loop.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out.Reason != StopDone {
		t.Errorf("reason = %s, want %s", out.Reason, StopDone)
	}
	if n := out.Run.StepCount(); n != 2 {
		t.Fatalf("steps = %d, want 2", n)
	}
	last := out.Run.LastStep()
	if !last.IsDone() || last.Status() != StatusSucceeded {
		t.Errorf("last step done=%v status=%s", last.IsDone(), last.Status())
	}
	if last.Summary() != "renamed the variable" {
		t.Errorf("done summary = %q", last.Summary())
	}
}

func TestLoopRecoversModelMistakes(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantKind FailureKind
	}{
		{"unknown action", `{"action":"rm_rf","input":{}}`, FailureUnknownAction},
		{"invalid input", `{"action":"touch","input":{"path":7}}`, FailureInvalidInput},
		{"format error", `sure, I will touch the file now!`, FailureFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &scriptedModel{script: []string{tt.response, `{"action":"done","summary":"ok"}`}}
			loop := buildLoop(t, model, touchRegistry(t), 50)

			out, err := loop.Execute(context.Background(), nil)
			if err != nil {
				t.Fatalf("Execute() error: %v", err)
			}
			// The mistake is a failed step; the loop keeps going.
			if out.Reason != StopDone {
				t.Fatalf("reason = %s, want %s", out.Reason, StopDone)
			}
			if n := out.Run.StepCount(); n != 2 {
				t.Fatalf("steps = %d, want 2", n)
			}
			first := out.Run.Steps()[0]
			if first.Status() != StatusFailed {
				t.Fatalf("first step status = %s, want failed", first.Status())
			}
			if first.Failure().Kind != tt.wantKind {
				t.Errorf("failure kind = %s, want %s", first.Failure().Kind, tt.wantKind)
			}
			if first.Summary() == "" {
				t.Error("failed step has no model-facing summary")
			}
		})
	}
}

func TestLoopExecutesValidAction(t *testing.T) {
	model := &scriptedModel{script: []string{
		`{"action":"touch","input":{"path":"main.go"}}`,
		`{"action":"done","summary":"touched"}`,
	}}
	loop := buildLoop(t, model, touchRegistry(t), 50)

	out, err := loop.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	first := out.Run.Steps()[0]
	if first.Status() != StatusSucceeded {
		t.Fatalf("action step status = %s (%s)", first.Status(), first.Summary())
	}
	if first.Output()["path"] != "main.go" {
		t.Errorf("action output = %v", first.Output())
	}
	if !strings.Contains(first.Summary(), "touch succeeded") {
		t.Errorf("summary = %q", first.Summary())
	}
}

func TestLoopFatalModelFailure(t *testing.T) {
	callErr := errors.New("503 service unavailable")
	model := ModelFunc(func(ctx context.Context, prompt string) (ModelResponse, error) {
		return ModelResponse{}, callErr
	})
	loop := buildLoop(t, model, nil, 50)

	out, err := loop.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("Execute() succeeded, want fatal error")
	}
	if !IsRetryExhausted(err) {
		t.Errorf("err = %v, want retry exhaustion", err)
	}
	if out.Reason != StopError || out.Err == nil {
		t.Errorf("outcome = {%s, %v}", out.Reason, out.Err)
	}
	// One ledger entry per attempt, no more.
	if n := out.Run.CallCount(); n != fastPolicy().MaxAttempts {
		t.Errorf("ledger entries = %d, want %d", n, fastPolicy().MaxAttempts)
	}
	// The failure is still visible in the step history.
	last := out.Run.LastStep()
	if last == nil || last.Status() != StatusFailed || last.Failure().Kind != FailureModelCall {
		t.Errorf("last step = %+v, want failed %s step", last, FailureModelCall)
	}
}

func TestLoopLedgerIncludesRetriedAttempts(t *testing.T) {
	model := &scriptedModel{
		script: []string{``, `{"action":"done","summary":"ok"}`},
		errs:   []error{errors.New("429 too many requests"), nil},
	}
	loop := buildLoop(t, model, nil, 50)

	out, err := loop.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	ledger := out.Run.Ledger()
	if len(ledger) != 2 {
		t.Fatalf("ledger entries = %d, want 2 (failed attempt + success)", len(ledger))
	}
	if ledger[0].Success || ledger[0].Error == "" {
		t.Errorf("first attempt = %+v, want recorded failure", ledger[0])
	}
	if !ledger[1].Success {
		t.Errorf("second attempt = %+v, want recorded success", ledger[1])
	}
}

func TestLoopCancellation(t *testing.T) {
	t.Run("before first step", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		model := &scriptedModel{script: []string{`{"action":"noop"}`}}
		loop := buildLoop(t, model, nil, 50)

		out, err := loop.Execute(ctx, nil)
		if err != nil {
			t.Fatalf("Execute() error: %v", err)
		}
		if out.Reason != StopCancelled {
			t.Errorf("reason = %s, want %s", out.Reason, StopCancelled)
		}
		if out.Run.StepCount() != 0 {
			t.Errorf("steps = %d, want 0", out.Run.StepCount())
		}
	})

	t.Run("between steps", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		reg, _ := NewRegistry(Action{
			ID: "pull_the_plug",
			Execute: func(ctx context.Context, input map[string]any, run *Run) (map[string]any, error) {
				cancel() // external abort arrives while this step runs
				return map[string]any{"done": true}, nil
			},
		})
		model := &scriptedModel{script: []string{`{"action":"pull_the_plug","input":{}}`}}
		loop := buildLoop(t, model, reg, 50)

		out, err := loop.Execute(ctx, nil)
		if err != nil {
			t.Fatalf("Execute() error: %v", err)
		}
		if out.Reason != StopCancelled {
			t.Errorf("reason = %s, want %s", out.Reason, StopCancelled)
		}
		// The in-flight step finished; its outcome is intact.
		if n := out.Run.StepCount(); n != 1 {
			t.Fatalf("steps = %d, want 1", n)
		}
		if out.Run.LastStep().Status() != StatusSucceeded {
			t.Errorf("last step status = %s, want succeeded", out.Run.LastStep().Status())
		}
	})
}

func TestLoopBuilderValidation(t *testing.T) {
	if _, err := NewLoopBuilder().Build(); err == nil {
		t.Error("Build() without model succeeded")
	}
	model := &scriptedModel{script: []string{`{"action":"noop"}`}}
	if _, err := NewLoopBuilder().WithModel(model, "m").Build(); err == nil {
		t.Error("Build() without prompt builder succeeded")
	}
}
