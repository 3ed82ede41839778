package bootstrap

import (
	"testing"

	"startup-standup-be/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestNewEvaluatorRegistry(t *testing.T) {
	cfg := &config.Config{}
	cfg.Evaluator.Default = "openai"
	cfg.Evaluator.OllamaEnabled = true
	cfg.Keys.GoogleGemini = "g-key"

	r := NewEvaluatorRegistry(cfg, "rubric")
	assert.Equal(t, []string{"gemini", "ollama"}, r.Names())
	// Default is not configured, so the first registered backend serves.
	assert.Equal(t, "gemini", r.DefaultName())

	assert.Empty(t, NewEvaluatorRegistry(&config.Config{}, "rubric").Names())
}
