package engine

import "context"

// TokenUsage holds token accounting returned by providers.
type TokenUsage struct {
	Prompt     int
	Completion int
	Total      int
}

// ModelResponse is the normalized result of one model call.
type ModelResponse struct {
	Text  string
	Usage TokenUsage
}

// ModelClient abstracts the model provider (Anthropic, OpenAI, ...). The
// engine only needs text in, text plus usage out; errors should be wrapped
// with WrapModelError so the retry wrapper can classify them.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (ModelResponse, error)
}

// ModelFunc adapts a plain function to ModelClient.
type ModelFunc func(ctx context.Context, prompt string) (ModelResponse, error)

func (f ModelFunc) Complete(ctx context.Context, prompt string) (ModelResponse, error) {
	return f(ctx, prompt)
}

// PromptBuilder assembles the prompt payload from the run properties and the
// ordered step history. The engine treats its output opaquely.
type PromptBuilder func(props any, steps []*Step) string

// Intent is the parsed meaning of a model response: either an action
// invocation, a plain noop, or a done signal.
type Intent struct {
	Action  string
	Input   map[string]any
	Summary string // model-provided summary for noop/done intents
	Noop    bool
	Done    bool
}

// IntentParser turns raw model output into an Intent. A parse error is
// classified as a format error and recovered as a failed step, so parsers
// decide how permissive the accepted shapes are.
type IntentParser interface {
	Parse(raw string) (Intent, error)
}
