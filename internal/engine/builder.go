package engine

import (
	"fmt"
)

// LoopBuilder assembles a Loop with a fluent API, validating and freezing
// the configuration at Build time.
type LoopBuilder struct {
	model      ModelClient
	modelID    string
	registry   Registry
	prompt     PromptBuilder
	parser     IntentParser
	controller Controller
	policy     *RetryPolicy
	observers  Observers
	onObsErr   func(error)
}

// NewLoopBuilder creates a builder with defaults left unset; Build fills in
// the standard parser, retry policy, and max-step controller as needed.
func NewLoopBuilder() *LoopBuilder {
	return &LoopBuilder{}
}

// WithModel sets the model client and the model id recorded on ledger
// entries (also the rate-table key for cost accounting).
func (b *LoopBuilder) WithModel(client ModelClient, modelID string) *LoopBuilder {
	b.model = client
	b.modelID = modelID
	return b
}

// WithRegistry sets the available action set.
func (b *LoopBuilder) WithRegistry(reg Registry) *LoopBuilder {
	b.registry = reg
	return b
}

// WithPromptBuilder sets the prompt-assembly collaborator.
func (b *LoopBuilder) WithPromptBuilder(pb PromptBuilder) *LoopBuilder {
	b.prompt = pb
	return b
}

// WithParser overrides the default JSON intent parser.
func (b *LoopBuilder) WithParser(p IntentParser) *LoopBuilder {
	b.parser = p
	return b
}

// WithController sets the stop/continue policy.
func (b *LoopBuilder) WithController(c Controller) *LoopBuilder {
	b.controller = c
	return b
}

// WithMaxSteps is shorthand for WithController(MaxStepsController(n)).
func (b *LoopBuilder) WithMaxSteps(n int) *LoopBuilder {
	b.controller = MaxStepsController(n)
	return b
}

// WithRetryPolicy sets the model-call backoff policy.
func (b *LoopBuilder) WithRetryPolicy(p RetryPolicy) *LoopBuilder {
	b.policy = &p
	return b
}

// WithObservers appends lifecycle observers.
func (b *LoopBuilder) WithObservers(obs ...Observer) *LoopBuilder {
	b.observers = append(b.observers, obs...)
	return b
}

// WithObserverErrorFunc sets the sink for isolated observer failures.
func (b *LoopBuilder) WithObserverErrorFunc(f func(error)) *LoopBuilder {
	b.onObsErr = f
	return b
}

// Build validates the configuration and constructs the Loop.
func (b *LoopBuilder) Build() (*Loop, error) {
	if b.model == nil {
		return nil, fmt.Errorf("model client not configured: use WithModel")
	}
	if b.prompt == nil {
		return nil, fmt.Errorf("prompt builder not configured: use WithPromptBuilder")
	}

	registry := b.registry
	if registry == nil {
		registry = make(Registry)
	}

	parser := b.parser
	if parser == nil {
		parser = JSONIntentParser{Lenient: true}
	}

	controller := b.controller
	if controller == nil {
		controller = MaxStepsController(DefaultMaxSteps)
	}

	policy := DefaultRetryPolicy()
	if b.policy != nil {
		policy = *b.policy
	}

	gen := &Generator{
		Model:     b.model,
		ModelID:   b.modelID,
		Prompt:    b.prompt,
		Parser:    parser,
		Registry:  registry,
		Policy:    policy,
		Observers: b.observers,
		Report:    b.onObsErr,
	}

	return &Loop{
		gen:        gen,
		controller: controller,
		observers:  b.observers,
		onObsErr:   b.onObsErr,
	}, nil
}
