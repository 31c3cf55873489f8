//go:build !integration

package ai_test

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codecraft-ai/internal/domain/ports/adapter"
	ai "codecraft-ai/internal/infra/adapters/ai"
)

type stubAI struct {
	name      string
	mu        sync.Mutex
	streams   int
	lastModel string
}

func (s *stubAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{s.name + "-model"}, nil
}

func (s *stubAI) Stream(ctx context.Context, req adapter.GenerationRequest) iter.Seq2[string, error] {
	s.mu.Lock()
	s.streams++
	s.lastModel = req.Model
	s.mu.Unlock()
	return func(yield func(string, error) bool) {
		yield(s.name, nil)
	}
}

func (s *stubAI) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams
}

func drain(seq iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for chunk, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

func TestRouting_ExplicitMap_Heuristics_And_Fallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	open := &stubAI{name: "openai"}
	gem := &stubAI{name: "gemini"}

	m := ai.NewMultiAIAdapter(
		"openai",
		map[string]adapter.CodeGenerator{"openai": open, "gemini": gem},
		map[string]string{"custom-x": "gemini"},
	)

	cases := []struct {
		model string
		want  string
	}{
		{"custom-x", "gemini"},    // explicit map wins
		{"gpt-4o-mini", "openai"}, // gpt-* -> openai
		{"gemini-2.5-pro", "gemini"},
		{"unknown", "openai"}, // default provider
	}
	for _, tc := range cases {
		got, err := drain(m.Stream(ctx, adapter.GenerationRequest{Model: tc.model}))
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.model, err)
		}
		if got != tc.want {
			t.Fatalf("model %q should route to %s, got %s", tc.model, tc.want, got)
		}
	}
	if open.count() != 2 || gem.count() != 2 {
		t.Fatalf("unexpected stream counts open:%d gem:%d", open.count(), gem.count())
	}
}

func TestRouting_NoProviders(t *testing.T) {
	m := ai.NewMultiAIAdapter("openai", map[string]adapter.CodeGenerator{}, nil)
	if _, err := drain(m.Stream(context.Background(), adapter.GenerationRequest{Model: "x"})); err == nil {
		t.Fatal("expected error without providers")
	}
}

func TestListModels_Union(t *testing.T) {
	m := ai.NewMultiAIAdapter(
		"openai",
		map[string]adapter.CodeGenerator{"openai": &stubAI{name: "openai"}, "gemini": &stubAI{name: "gemini"}},
		map[string]string{"custom-x": "gemini"},
	)
	got, _ := m.ListModels(context.Background())
	want := []string{"custom-x", "gemini-model", "openai-model"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("want %v, got %v", want, got)
	}
}

// blockingAI streams until release is closed and records peak concurrency.
type blockingAI struct {
	release chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
}

func (b *blockingAI) ListModels(ctx context.Context) ([]string, error) { return nil, nil }

func (b *blockingAI) Stream(ctx context.Context, req adapter.GenerationRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		n := b.active.Add(1)
		defer b.active.Add(-1)
		for {
			p := b.peak.Load()
			if n <= p || b.peak.CompareAndSwap(p, n) {
				break
			}
		}
		if !yield("a", nil) {
			return
		}
		<-b.release
		yield("b", nil)
	}
}

func TestLimitedAI_HoldsSlotForWholeStream(t *testing.T) {
	inner := &blockingAI{release: make(chan struct{})}
	lim := ai.NewLimitedAI(inner, 2)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = drain(lim.Stream(context.Background(), adapter.GenerationRequest{}))
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	if p := inner.peak.Load(); p > 2 {
		t.Fatalf("want at most 2 concurrent streams, got %d", p)
	}
}

func TestLimitedAI_ContextWhileWaiting(t *testing.T) {
	inner := &blockingAI{release: make(chan struct{})}
	defer close(inner.release)
	lim := ai.NewLimitedAI(inner, 1)

	started := make(chan struct{})
	go func() {
		for chunk := range lim.Stream(context.Background(), adapter.GenerationRequest{}) {
			if chunk == "a" {
				close(started)
			}
		}
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := drain(lim.Stream(ctx, adapter.GenerationRequest{}))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded while waiting for a slot, got %v", err)
	}
}

func TestEchoAdapter(t *testing.T) {
	e := ai.NewEchoAdapter()
	e.Delay = 0
	got, err := drain(e.Stream(context.Background(), adapter.GenerationRequest{Prompt: "hello"}))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !strings.HasPrefix(got, "You asked: hello") || !strings.Contains(got, "```python") {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestEstimatingCounter(t *testing.T) {
	c := ai.NewEstimatingCounter()
	if c.Count("") != 0 || c.Count("abcd") != 1 || c.Count("abcde") != 2 {
		t.Fatal("unexpected estimates")
	}
}
