package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Reserved intent ids understood by the default parser.
const (
	IntentNoop = "noop"
	IntentDone = "done"
)

// Generator decides the next step from the run's full history: it assembles
// a prompt, calls the model through the retry wrapper, and parses the answer
// into a step. A non-nil error from Next is fatal (retries exhausted or a
// non-retryable model failure); everything else, including unparseable
// output, comes back as a pending step for the loop to execute.
type Generator struct {
	Model    ModelClient
	ModelID  string // recorded on each ledger entry and used for rate lookup
	Prompt   PromptBuilder
	Parser   IntentParser
	Registry Registry
	Policy   RetryPolicy

	Observers Observers
	Report    func(error) // observer-error sink, may be nil
}

// Next produces the next pending step for the run.
func (g *Generator) Next(ctx context.Context, run *Run) (*Step, error) {
	prompt := g.Prompt(run.Props, run.Steps())

	resp, err := g.complete(ctx, run, prompt)
	if err != nil {
		return nil, err
	}

	intent, perr := g.Parser.Parse(resp.Text)
	if perr != nil {
		return NewFormatErrorStep(perr), nil
	}

	switch {
	case intent.Done:
		summary := intent.Summary
		if summary == "" {
			summary = "model signalled completion"
		}
		return NewNoopStep(summary, true), nil
	case intent.Noop:
		summary := intent.Summary
		if summary == "" {
			summary = "model chose to do nothing this step"
		}
		return NewNoopStep(summary, false), nil
	default:
		return NewActionStep(g.Registry, intent.Action, intent.Input), nil
	}
}

// complete calls the model through the retry wrapper, recording every
// attempt in the run's ledger.
func (g *Generator) complete(ctx context.Context, run *Run, prompt string) (ModelResponse, error) {
	return Retry(ctx, g.Policy,
		func(ctx context.Context) (ModelResponse, error) {
			started := time.Now()
			resp, err := g.Model.Complete(ctx, prompt)

			call := RecordedCall{
				Model:     g.ModelID,
				Prompt:    prompt,
				Timestamp: started,
				Success:   err == nil,
			}
			if err != nil {
				call.Error = err.Error()
			} else {
				call.Response = resp.Text
				call.Usage = resp.Usage
			}
			run.Record(call)
			g.report(g.Observers.ModelCall(ctx, run, call))

			return resp, err
		},
		ClassifyModelError,
		func(attempt int, delay time.Duration, err error) {
			g.report(g.Observers.RetryAttempt(ctx, run, attempt, delay, err))
		},
	)
}

func (g *Generator) report(errs []error) {
	if g.Report == nil {
		return
	}
	for _, err := range errs {
		g.Report(err)
	}
}

// JSONIntentParser is the default parser: it expects the model response to
// contain a single JSON object {"action":"<id>","input":{...}} and treats
// the ids "noop" and "done" as reserved. With Lenient set, the object may be
// surrounded by prose and the first balanced object is used; otherwise the
// whole response must be the object. Anything that does not decode into the
// envelope is a format error; a decoded envelope whose input later fails the
// action's schema is invalid input, decided at dispatch.
type JSONIntentParser struct {
	Lenient bool
}

type intentEnvelope struct {
	Action  string         `json:"action"`
	Input   map[string]any `json:"input"`
	Summary string         `json:"summary"`
}

// Parse implements IntentParser.
func (p JSONIntentParser) Parse(raw string) (Intent, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Intent{}, fmt.Errorf("empty model response")
	}

	if p.Lenient {
		obj, ok := firstJSONObject(text)
		if !ok {
			return Intent{}, fmt.Errorf("no JSON object found in model response")
		}
		text = obj
	}

	var env intentEnvelope
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&env); err != nil {
		return Intent{}, fmt.Errorf("model response is not a JSON action envelope: %w", err)
	}
	if !p.Lenient {
		// Trailing content after the object is a formatting mistake.
		if dec.More() {
			return Intent{}, fmt.Errorf("trailing content after action envelope")
		}
	}

	if env.Action == "" {
		return Intent{}, fmt.Errorf("action envelope is missing the \"action\" field")
	}

	switch env.Action {
	case IntentDone:
		return Intent{Done: true, Summary: env.Summary}, nil
	case IntentNoop:
		return Intent{Noop: true, Summary: env.Summary}, nil
	default:
		return Intent{Action: env.Action, Input: env.Input}, nil
	}
}

// firstJSONObject extracts the first balanced top-level object from text.
func firstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
