package providers

import (
	"fmt"
	"os"

	"github.com/ChamsBouzaiene/runloop/internal/engine"
)

// NewModelClientFromEnv creates a model client from environment variables.
// MODEL_PROVIDER selects the vendor; each provider reads its own key and
// model variables. The returned string is the model id for ledger entries
// and rate lookups.
func NewModelClientFromEnv() (engine.ModelClient, string, error) {
	provider := os.Getenv("MODEL_PROVIDER")
	if provider == "" {
		provider = "openai"
	}

	switch provider {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, "", fmt.Errorf("OPENAI_API_KEY not set")
		}
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			model = "gpt-5.2-mini"
		}
		baseURL := os.Getenv("OPENAI_BASE_URL")
		return NewOpenAIClient(apiKey, model, baseURL), model, nil

	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, "", fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		model := os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-sonnet-4-5"
		}
		return NewAnthropicClient(apiKey, model), model, nil

	case "deepseek":
		// OpenAI-compatible endpoint.
		apiKey := os.Getenv("DEEPSEEK_API_KEY")
		if apiKey == "" {
			return nil, "", fmt.Errorf("DEEPSEEK_API_KEY not set")
		}
		model := os.Getenv("DEEPSEEK_MODEL")
		if model == "" {
			model = "deepseek-chat"
		}
		return NewOpenAIClient(apiKey, model, "https://api.deepseek.com/v1"), model, nil

	case "ollama":
		// Local OpenAI-compatible server; the key is a placeholder.
		baseURL := os.Getenv("OLLAMA_BASE_URL")
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			model = "llama3.1"
		}
		return NewOpenAIClient("ollama", model, baseURL), model, nil

	default:
		return nil, "", fmt.Errorf("unknown MODEL_PROVIDER: %s (supported: openai, anthropic, deepseek, ollama)", provider)
	}
}
