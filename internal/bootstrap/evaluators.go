package bootstrap

import (
	"log"

	"startup-standup-be/internal/config"
	"startup-standup-be/pkg/evaluator"
	"startup-standup-be/pkg/llm/factory"
)

type providerConfig struct {
	name    string
	model   string
	baseURL string
	apiKey  string
	enabled bool
}

// NewEvaluatorRegistry registers one backend per configured provider. A
// provider without credentials is skipped.
func NewEvaluatorRegistry(cfg *config.Config, rubric string) *evaluator.Registry {
	providers := []providerConfig{
		{name: "gemini", model: cfg.Evaluator.GeminiModel, apiKey: cfg.Keys.GoogleGemini, enabled: cfg.Keys.GoogleGemini != ""},
		{name: "openai", model: cfg.Evaluator.OpenAIModel, baseURL: cfg.Evaluator.OpenAIBaseURL, apiKey: cfg.Keys.OpenAI, enabled: cfg.Keys.OpenAI != ""},
		{name: "ollama", model: cfg.Evaluator.OllamaModel, baseURL: cfg.Evaluator.OllamaBaseURL, enabled: cfg.Evaluator.OllamaEnabled},
	}

	registry := evaluator.NewRegistry(cfg.Evaluator.Default, rubric)
	for _, p := range providers {
		if !p.enabled {
			continue
		}
		provider, err := factory.NewLLMProvider(p.name, p.model, p.baseURL, p.apiKey)
		if err != nil {
			log.Printf("[WARN] Skipping evaluator %s: %v", p.name, err)
			continue
		}
		registry.Register(evaluator.NewLLMBackend(provider))
		log.Printf("[INFO] Evaluator registered: %s (%s)", p.name, p.model)
	}
	return registry
}
