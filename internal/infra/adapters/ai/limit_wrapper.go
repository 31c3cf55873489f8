package ai

import (
	"context"
	"iter"

	"codecraft-ai/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.CodeGenerator = (*limitedAI)(nil)

type limitedAI struct {
	inner adapter.CodeGenerator
	sem   chan struct{}
}

// NewLimitedAI caps concurrent streams. A slot is held until the stream ends.
func NewLimitedAI(inner adapter.CodeGenerator, maxConcurrent int) adapter.CodeGenerator {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAI{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAI) ListModels(ctx context.Context) ([]string, error) {
	return l.inner.ListModels(ctx)
}

func (l *limitedAI) Stream(ctx context.Context, req adapter.GenerationRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		select {
		case l.sem <- struct{}{}:
		case <-ctx.Done():
			yield("", ctx.Err())
			return
		}
		defer func() { <-l.sem }()
		for chunk, err := range l.inner.Stream(ctx, req) {
			if !yield(chunk, err) {
				return
			}
		}
	}
}
