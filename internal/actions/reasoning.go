package actions

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/ChamsBouzaiene/runloop/internal/engine"
)

// NewThink returns an action that records the model's reasoning without
// doing any work. The reasoning shows up in the step history, so it keeps
// multi-step plans visible to both the model and the operator.
func NewThink(log logr.Logger) engine.Action {
	return engine.Action{
		ID:           "think",
		Description:  "record your reasoning or plan; has no side effects",
		InputSchema:  `{"type":"object","properties":{"reasoning":{"type":"string"}},"required":["reasoning"]}`,
		InputExample: map[string]any{"reasoning": "the failing test points at the parser, read it first"},
		Execute: func(ctx context.Context, input map[string]any, run *engine.Run) (map[string]any, error) {
			reasoning, _ := input["reasoning"].(string)
			if reasoning == "" {
				return nil, fmt.Errorf("reasoning must not be empty")
			}
			log.Info("model reasoning", "run", run.ID, "reasoning", reasoning)
			return map[string]any{"noted": true}, nil
		},
		FormatResult: func(seed string, output map[string]any) string {
			return "reasoning noted"
		},
	}
}
