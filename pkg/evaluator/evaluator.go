package evaluator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"startup-standup-be/pkg/llm"
)

const SystemInstruction = "You are a conversation evaluator. Follow the scenario-specific rubric and respond in English. " +
	"Focus your evaluation on the specific stages or moments that most influenced the final score. " +
	"Provide a concise, insightful feedback paragraph followed by the final score in the format 'Score:X/5'."

const promptHeader = "Please evaluate the following conversation. Respond only in English."

var ErrNoBackend = errors.New("evaluator: no backend configured")

// Backend turns an evaluation prompt into free text.
type Backend interface {
	Name() string
	Evaluate(ctx context.Context, prompt string) (string, error)
}

// BuildPrompt joins the transcript lines and appends the rubric.
func BuildPrompt(rubric string, transcript []string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(transcript, "\n"))
	b.WriteString("\n\n")
	b.WriteString(rubric)
	return b.String()
}

// LLMBackend sends the prompt to a chat model under SystemInstruction.
type LLMBackend struct {
	provider llm.LLMProvider
	opts     []llm.Option
}

func NewLLMBackend(provider llm.LLMProvider, opts ...llm.Option) *LLMBackend {
	return &LLMBackend{provider: provider, opts: opts}
}

func (b *LLMBackend) Name() string { return b.provider.Name() }

func (b *LLMBackend) Evaluate(ctx context.Context, prompt string) (string, error) {
	out, err := b.provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: SystemInstruction},
		{Role: llm.RoleUser, Content: prompt},
	}, b.opts...)
	if err != nil {
		return "", fmt.Errorf("%s evaluate: %w", b.provider.Name(), err)
	}
	return out, nil
}

// NoopBackend always fails, so callers fall back to rule ranks.
type NoopBackend struct{}

func (NoopBackend) Name() string { return "none" }

func (NoopBackend) Evaluate(context.Context, string) (string, error) {
	return "", ErrNoBackend
}
