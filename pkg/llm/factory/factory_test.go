package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	for _, name := range []string{"gemini", "openai", "ollama"} {
		t.Run(name, func(t *testing.T) {
			p, err := NewLLMProvider(name, "", "", "key")
			require.NoError(t, err)
			assert.Equal(t, name, p.Name())
		})
	}

	_, err := NewLLMProvider("claude", "", "", "")
	assert.EqualError(t, err, "unsupported LLM provider: claude")
}
