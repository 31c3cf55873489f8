package ai

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"codecraft-ai/internal/domain/ports/adapter"
)

var _ adapter.CodeGenerator = (*EchoAdapter)(nil)

// EchoAdapter is a dev-only generator that answers without a provider.
// It streams a fixed markdown reply word by word.
type EchoAdapter struct {
	Delay time.Duration
}

func NewEchoAdapter() *EchoAdapter {
	return &EchoAdapter{Delay: 30 * time.Millisecond}
}

func (a *EchoAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{"echo"}, nil
}

func (a *EchoAdapter) Stream(ctx context.Context, req adapter.GenerationRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		reply := echoReply(req)
		for i, word := range strings.SplitAfter(reply, " ") {
			if i > 0 && a.Delay > 0 {
				select {
				case <-time.After(a.Delay):
				case <-ctx.Done():
					yield("", ctx.Err())
					return
				}
			}
			if !yield(word, nil) {
				return
			}
		}
	}
}

func echoReply(req adapter.GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You asked: %s\n\n", req.Prompt)
	b.WriteString("```python\nprint(")
	fmt.Fprintf(&b, "%q", req.Prompt)
	b.WriteString(")\n```\n\n")
	fmt.Fprintf(&b, "This reply was produced by the echo generator with %d earlier turns of context.", len(req.History))
	return b.String()
}
