package evaluator

import (
	"context"
	"strings"
)

// Registry maps choice names to backends. Unknown or empty choices use the
// default; a registry with no backends answers with NoopBackend.
type Registry struct {
	backends   map[string]Backend
	order      []string
	defaultKey string
	rubric     string
}

func NewRegistry(defaultKey, rubric string, backends ...Backend) *Registry {
	r := &Registry{
		backends:   make(map[string]Backend, len(backends)),
		defaultKey: normalize(defaultKey),
		rubric:     rubric,
	}
	for _, b := range backends {
		if b == nil {
			continue
		}
		r.Register(b)
	}
	return r
}

func (r *Registry) Register(b Backend) {
	name := normalize(b.Name())
	if _, exists := r.backends[name]; !exists {
		r.order = append(r.order, name)
	}
	r.backends[name] = b
}

// Names lists registered backends in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Resolve picks the backend for choice.
func (r *Registry) Resolve(choice string) Backend {
	if b, ok := r.backends[normalize(choice)]; ok {
		return b
	}
	if b, ok := r.backends[r.defaultKey]; ok {
		return b
	}
	if len(r.order) > 0 {
		return r.backends[r.order[0]]
	}
	return NoopBackend{}
}

func (r *Registry) ResolveName(choice string) string {
	return r.Resolve(choice).Name()
}

// DefaultName is the name Resolve("") lands on.
func (r *Registry) DefaultName() string {
	return r.Resolve("").Name()
}

func (r *Registry) Evaluate(ctx context.Context, choice string, transcript []string) (string, error) {
	return r.Resolve(choice).Evaluate(ctx, BuildPrompt(r.rubric, transcript))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
