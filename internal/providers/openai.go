package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/ChamsBouzaiene/runloop/internal/engine"
)

// OpenAIClient implements engine.ModelClient against the OpenAI API or any
// OpenAI-compatible endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client bound to one model. baseURL may be empty
// for the public API, or point at a compatible server.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Complete implements engine.ModelClient.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (engine.ModelResponse, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: defaultMaxTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return engine.ModelResponse{}, engine.WrapModelError(err, httpStatus, retryAfter)
	}
	if len(resp.Choices) == 0 {
		return engine.ModelResponse{}, fmt.Errorf("empty response from provider")
	}

	return engine.ModelResponse{
		Text: resp.Choices[0].Message.Content,
		Usage: engine.TokenUsage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
	}, nil
}

// extractErrorMetadata pulls the HTTP status code and Retry-After value out
// of an SDK error message, best effort.
func extractErrorMetadata(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	errStr := err.Error()

	var httpStatus int
	for _, probe := range []struct {
		needle string
		status int
	}{
		{"429", http.StatusTooManyRequests},
		{"500", http.StatusInternalServerError},
		{"502", http.StatusBadGateway},
		{"503", http.StatusServiceUnavailable},
		{"504", http.StatusGatewayTimeout},
		{"401", http.StatusUnauthorized},
		{"403", http.StatusForbidden},
		{"400", http.StatusBadRequest},
		{"402", http.StatusPaymentRequired},
	} {
		if strings.Contains(errStr, probe.needle) {
			httpStatus = probe.status
			break
		}
	}

	var retryAfter string
	lower := strings.ToLower(errStr)
	for _, marker := range []string{"retry-after", "retry after"} {
		if idx := strings.Index(lower, marker); idx != -1 {
			rest := strings.TrimLeft(errStr[idx+len(marker):], ": ")
			if parts := strings.Fields(rest); len(parts) > 0 {
				retryAfter = parts[0]
			}
			break
		}
	}

	return httpStatus, retryAfter
}
