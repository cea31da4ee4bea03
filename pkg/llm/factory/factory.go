package factory

import (
	"fmt"
	"strings"

	"kb-agent/pkg/llm"
	"kb-agent/pkg/llm/anthropic"
	"kb-agent/pkg/llm/ollama"
	"kb-agent/pkg/llm/openai"
)

// Credentials carries the per-backend settings a provider may need.
type Credentials struct {
	OllamaBaseURL   string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	HuggingFaceKey  string
}

// ParseModelName splits a "<provider>/<model>" identifier. The model part may
// itself contain slashes (e.g. "huggingface/meta-llama/Llama-3.1-8B-Instruct").
func ParseModelName(fullySpecified string) (provider, model string, err error) {
	provider, model, ok := strings.Cut(fullySpecified, "/")
	if !ok || provider == "" || model == "" {
		return "", "", fmt.Errorf("model must be in the form <provider>/<model>, got %q", fullySpecified)
	}
	return provider, model, nil
}

// NewLLMProvider builds the backend selected by a "<provider>/<model>" identifier.
func NewLLMProvider(fullySpecified string, creds Credentials) (llm.LLMProvider, error) {
	providerType, modelName, err := ParseModelName(fullySpecified)
	if err != nil {
		return nil, err
	}

	switch providerType {
	case "ollama":
		return ollama.NewOllamaProvider(creds.OllamaBaseURL, modelName), nil
	case "anthropic":
		return anthropic.NewProvider(creds.AnthropicAPIKey, modelName), nil
	case "openai":
		return openai.NewProvider(creds.OpenAIAPIKey, creds.OpenAIBaseURL, modelName), nil
	case "huggingface":
		return openai.NewProvider(creds.HuggingFaceKey, openai.HuggingFaceBaseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
