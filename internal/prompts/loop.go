package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/runloop/internal/engine"
)

// DefaultSystem is the base instruction fragment used when the caller does
// not supply its own.
const DefaultSystem = `You are an autonomous agent working one step at a time toward the task below.

Rules:
- Take exactly ONE action per reply.
- Read the step history before acting; never repeat work that already succeeded.
- When a step failed, its summary explains what went wrong. Correct it instead of retrying blindly.
- When the task is complete, reply with the "done" action and a summary of what you accomplished.
- If there is genuinely nothing useful to do this step, reply with the "noop" action.`

const envelopeContract = `Reply with exactly one JSON object and nothing else:
{"action":"<id>","input":{...}}

Reserved ids: "noop" (do nothing this step) and "done" (task complete; include a "summary" field).`

// ForLoop returns a prompt assembly function that renders the system text,
// the action catalog, the reply contract, the task properties, and the
// numbered step history.
func ForLoop(system string, reg engine.Registry) engine.PromptBuilder {
	if system == "" {
		system = DefaultSystem
	}
	catalog := renderCatalog(reg)

	return func(props any, steps []*engine.Step) string {
		return NewBuilder(system).
			Add(catalog).
			Add(envelopeContract).
			Add("Task:\n" + renderProps(props)).
			Add("Step history:\n" + renderHistory(steps)).
			Build()
	}
}

func renderCatalog(reg engine.Registry) string {
	ids := reg.IDs()
	if len(ids) == 0 {
		return "Available actions: none registered; only \"noop\" and \"done\" are valid."
	}

	var b strings.Builder
	b.WriteString("Available actions:")
	for _, id := range ids {
		action := reg[id]
		b.WriteString("\n- ")
		b.WriteString(id)
		if action.Description != "" {
			b.WriteString(": ")
			b.WriteString(action.Description)
		}
		if len(action.InputExample) > 0 {
			if data, err := json.Marshal(action.InputExample); err == nil {
				b.WriteString("\n  example input: ")
				b.Write(data)
			}
		}
	}
	return b.String()
}

func renderProps(props any) string {
	switch v := props.(type) {
	case nil:
		return "(none)"
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func renderHistory(steps []*engine.Step) string {
	if len(steps) == 0 {
		return "(no steps taken yet)"
	}
	var b strings.Builder
	for i, step := range steps {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, step.Status(), step.Summary())
	}
	return b.String()
}
