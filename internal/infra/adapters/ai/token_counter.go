package ai

import (
	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"codecraft-ai/internal/domain/ports/adapter"
)

var _ adapter.TokenCounter = (*TokenCounter)(nil)

const defaultEncoding = "cl100k_base"

// TokenCounter counts tokens with tiktoken, or estimates 4 bytes per token when
// the encoding is unavailable.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

func NewTokenCounter(logger *zerolog.Logger) *TokenCounter {
	enc, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		logger.Warn().Err(err).Str("encoding", defaultEncoding).Msg("tiktoken unavailable; using length estimate")
		return &TokenCounter{}
	}
	return &TokenCounter{enc: enc}
}

// NewEstimatingCounter never loads an encoding.
func NewEstimatingCounter() *TokenCounter { return &TokenCounter{} }

func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.enc == nil {
		return (len(text) + 3) / 4
	}
	return len(c.enc.Encode(text, nil, nil))
}
