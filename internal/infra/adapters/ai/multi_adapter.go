package ai

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"codecraft-ai/internal/domain/ports/adapter"
)

var _ adapter.CodeGenerator = (*MultiAIAdapter)(nil)

type MultiAIAdapter struct {
	defaultProvider string // "gemini" | "openai" | "echo"
	byProvider      map[string]adapter.CodeGenerator
	modelToProvider map[string]string
}

// NewMultiAIAdapter routes each generation by model name. Unknown models go to
// defaultProvider, and failing that to the first configured provider by name.
func NewMultiAIAdapter(
	defaultProvider string,
	byProvider map[string]adapter.CodeGenerator,
	modelToProvider map[string]string,
) *MultiAIAdapter {
	return &MultiAIAdapter{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
		modelToProvider: modelToProvider,
	}
}

func (m *MultiAIAdapter) resolveProvider(model string) string {
	if p := m.modelToProvider[model]; p != "" {
		return strings.ToLower(p)
	}
	l := strings.ToLower(model)
	switch {
	case strings.HasPrefix(l, "gemini"):
		return "gemini"
	case strings.HasPrefix(l, "gpt"), strings.HasPrefix(l, "o1"), strings.HasPrefix(l, "o3"), strings.HasPrefix(l, "o4"):
		return "openai"
	case l == "echo":
		return "echo"
	default:
		return m.defaultProvider
	}
}

func (m *MultiAIAdapter) pick(model string) adapter.CodeGenerator {
	prov := m.resolveProvider(model)
	if a := m.byProvider[prov]; a != nil {
		return a
	}
	if a := m.byProvider[m.defaultProvider]; a != nil {
		return a
	}
	for _, name := range slices.Sorted(maps.Keys(m.byProvider)) {
		if a := m.byProvider[name]; a != nil {
			return a
		}
	}
	return nil
}

// ListModels is the sorted union of configured models and what each provider reports.
func (m *MultiAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{}, len(m.modelToProvider))
	for model := range m.modelToProvider {
		seen[model] = struct{}{}
	}
	for _, a := range m.byProvider {
		list, _ := a.ListModels(ctx)
		for _, name := range list {
			if name != "" {
				seen[name] = struct{}{}
			}
		}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

func (m *MultiAIAdapter) Stream(ctx context.Context, req adapter.GenerationRequest) iter.Seq2[string, error] {
	a := m.pick(req.Model)
	if a == nil {
		return func(yield func(string, error) bool) {
			yield("", fmt.Errorf("no ai provider for model %q", req.Model))
		}
	}
	return a.Stream(ctx, req)
}
