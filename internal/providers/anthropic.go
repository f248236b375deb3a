// Package providers adapts vendor SDKs to the engine's model interface.
package providers

import (
	"context"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/ChamsBouzaiene/runloop/internal/engine"
)

const defaultMaxTokens = 4096

// AnthropicClient implements engine.ModelClient against the Anthropic API.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicClient creates a client bound to one model.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		client:    anthropic.NewClient(apiKey),
		model:     model,
		maxTokens: defaultMaxTokens,
	}
}

// Complete implements engine.ModelClient. Errors are wrapped with the HTTP
// status so the retry wrapper can classify them without string guessing.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (engine.ModelResponse, error) {
	temperature := float32(0.1)
	req := anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(prompt)},
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: &temperature,
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return engine.ModelResponse{}, engine.WrapModelError(err, httpStatus, retryAfter)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text += *block.Text
		}
	}

	return engine.ModelResponse{
		Text: text,
		Usage: engine.TokenUsage{
			Prompt:     resp.Usage.InputTokens,
			Completion: resp.Usage.OutputTokens,
			Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}
