package engine

import (
	"context"
	"testing"
)

func TestJSONIntentParser(t *testing.T) {
	tests := []struct {
		name    string
		lenient bool
		raw     string
		want    Intent
		wantErr bool
	}{
		{
			name: "strict action envelope",
			raw:  `{"action":"read_file","input":{"path":"go.mod"}}`,
			want: Intent{Action: "read_file", Input: map[string]any{"path": "go.mod"}},
		},
		{
			name: "strict done",
			raw:  `{"action":"done","summary":"finished"}`,
			want: Intent{Done: true, Summary: "finished"},
		},
		{
			name: "strict noop",
			raw:  `{"action":"noop"}`,
			want: Intent{Noop: true},
		},
		{
			name:    "strict rejects surrounding prose",
			raw:     `Here you go: {"action":"noop"}`,
			wantErr: true,
		},
		{
			name:    "strict rejects trailing content",
			raw:     `{"action":"noop"} and then some`,
			wantErr: true,
		},
		{
			name:    "lenient extracts embedded object",
			lenient: true,
			raw:     "I'll read the file.\n```json\n{\"action\":\"read_file\",\"input\":{\"path\":\"go.mod\"}}\n```",
			want:    Intent{Action: "read_file", Input: map[string]any{"path": "go.mod"}},
		},
		{
			name:    "lenient handles braces inside strings",
			lenient: true,
			raw:     `{"action":"write_file","input":{"content":"func main() {}"}}`,
			want:    Intent{Action: "write_file", Input: map[string]any{"content": "func main() {}"}},
		},
		{
			name:    "lenient with no object",
			lenient: true,
			raw:     `I could not decide what to do.`,
			wantErr: true,
		},
		{
			name:    "missing action field",
			raw:     `{"input":{"path":"go.mod"}}`,
			wantErr: true,
		},
		{
			name:    "empty response",
			raw:     "   ",
			wantErr: true,
		},
		{
			name:    "not json at all",
			raw:     `<action>read_file</action>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JSONIntentParser{Lenient: tt.lenient}.Parse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) succeeded, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.raw, err)
			}
			if got.Action != tt.want.Action || got.Done != tt.want.Done ||
				got.Noop != tt.want.Noop || got.Summary != tt.want.Summary {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
			for k, v := range tt.want.Input {
				if got.Input[k] != v {
					t.Errorf("Input[%q] = %v, want %v", k, got.Input[k], v)
				}
			}
		})
	}
}

func TestGeneratorNext(t *testing.T) {
	ctx := context.Background()
	gen := &Generator{
		Model:    &scriptedModel{script: []string{`{"action":"done","summary":"all set"}`}},
		ModelID:  "test-model",
		Prompt:   testPrompt,
		Parser:   JSONIntentParser{},
		Registry: make(Registry),
		Policy:   fastPolicy(),
	}

	run := NewRun(nil)
	step, err := gen.Next(ctx, run)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if step.Kind != StepNoop || !step.IsDone() {
		t.Errorf("step = kind %s done %v, want done noop", step.Kind, step.IsDone())
	}
	if run.CallCount() != 1 {
		t.Errorf("ledger entries = %d, want 1", run.CallCount())
	}
	call := run.Ledger()[0]
	if call.Model != "test-model" || !call.Success || call.Usage.Total != 15 {
		t.Errorf("recorded call = %+v", call)
	}
}

func TestGeneratorUnparseableResponseBecomesStep(t *testing.T) {
	ctx := context.Background()
	gen := &Generator{
		Model:   &scriptedModel{script: []string{`thinking out loud with no JSON`}},
		Prompt:  testPrompt,
		Parser:  JSONIntentParser{Lenient: true},
		Policy:  fastPolicy(),
		ModelID: "test-model",
	}

	run := NewRun(nil)
	step, err := gen.Next(ctx, run)
	if err != nil {
		t.Fatalf("Next() error: %v, want recovered format-error step", err)
	}
	if err := step.Execute(ctx, run); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if step.Failure() == nil || step.Failure().Kind != FailureFormat {
		t.Errorf("failure = %+v, want %s", step.Failure(), FailureFormat)
	}
}
