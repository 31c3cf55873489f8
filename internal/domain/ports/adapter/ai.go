package adapter

import (
	"context"
	"iter"
)

// Message represents a chat message in provider terms.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// GenerationRequest is one streamed completion.
type GenerationRequest struct {
	Model           string
	System          string
	History         []Message
	Prompt          string
	MaxOutputTokens int
}

// CodeGenerator is the port for streaming LLM generation.
type CodeGenerator interface {
	ListModels(ctx context.Context) ([]string, error)

	// Stream yields text chunks in arrival order. A non-nil error ends the sequence.
	Stream(ctx context.Context, req GenerationRequest) iter.Seq2[string, error]
}

// TokenCounter estimates prompt tokens for budgeting and metrics.
type TokenCounter interface {
	Count(text string) int
}
