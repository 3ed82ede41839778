package factory

import (
	"fmt"

	"startup-standup-be/pkg/llm"
	"startup-standup-be/pkg/llm/gemini"
	"startup-standup-be/pkg/llm/ollama"
	"startup-standup-be/pkg/llm/openai"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "gemini":
		var opts []gemini.Option
		if baseURL != "" {
			opts = append(opts, gemini.WithBaseURL(baseURL))
		}
		return gemini.NewProvider(apiKey, modelName, opts...), nil
	case "openai":
		return openai.NewProvider(apiKey, modelName, openai.WithBaseURL(baseURL)), nil
	case "ollama":
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
