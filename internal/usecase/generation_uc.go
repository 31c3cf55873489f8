package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"codecraft-ai/internal/domain"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/adapter"
	"codecraft-ai/internal/infra/logging"
)

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

// GenerateInput is a validated /generate-code request.
type GenerateInput struct {
	UserID       string
	Prompt       string
	LearningMode bool
	History      []model.ConversationTurn
}

type GenerationOptions struct {
	Model              string
	MaxOutputTokens    int
	HistoryTokenBudget int
	RateLimitPerMinute int
	SingleFlight       bool
	LockTTL            time.Duration
	// LogPrompts writes prompts to the log unredacted.
	LogPrompts         bool
}

type GenerationUseCase interface {
	// Start admits the request and prepares the provider stream.
	// The caller must Close the returned Generation.
	Start(ctx context.Context, in GenerateInput) (*Generation, error)
}

type generationUC struct {
	ai      adapter.CodeGenerator
	tokens  adapter.TokenCounter
	limiter adapter.RateLimiter
	locker  adapter.Locker
	opts    GenerationOptions
	log     *zerolog.Logger
}

// NewGenerationUseCase wires the generator. limiter and locker may be nil.
func NewGenerationUseCase(ai adapter.CodeGenerator, tokens adapter.TokenCounter, limiter adapter.RateLimiter, locker adapter.Locker, opts GenerationOptions, logger *zerolog.Logger) *generationUC {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	return &generationUC{
		ai:      ai,
		tokens:  tokens,
		limiter: limiter,
		locker:  locker,
		opts:    opts,
		log:     logging.Component(logger, "GenerationUC"),
	}
}

func rateKey(userID string) string { return "rate_limit:generate:" + userID }
func lockKey(userID string) string { return "lock:generate:" + userID }

func (g *generationUC) Start(ctx context.Context, in GenerateInput) (*Generation, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, fmt.Errorf("user_id: %w", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, domain.ErrEmptyPrompt
	}
	logger := logging.With(ctx, g.log)

	if g.limiter != nil && g.opts.RateLimitPerMinute > 0 {
		ok, err := g.limiter.Allow(ctx, rateKey(in.UserID), g.opts.RateLimitPerMinute, time.Minute)
		switch {
		case err != nil:
			// fail open
			logger.Warn().Err(err).Msg("rate limiter unavailable")
		case !ok:
			return nil, domain.ErrRateLimited
		}
	}

	release := func() {}
	if g.opts.SingleFlight && g.locker != nil {
		token, err := g.locker.TryLock(ctx, lockKey(in.UserID), g.opts.LockTTL)
		switch {
		case errors.Is(err, domain.ErrLocked):
			return nil, domain.ErrGenerationInFlight
		case err != nil:
			logger.Warn().Err(err).Msg("generation lock unavailable")
		default:
			release = func() {
				// the request context may already be gone
				uctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := g.locker.Unlock(uctx, lockKey(in.UserID), token); err != nil {
					g.log.Warn().Err(err).Str("user_id", in.UserID).Msg("failed to release generation lock")
				}
			}
		}
	}

	system := SystemPrompt(in.LearningMode)
	history, historyTokens := TrimHistory(ProviderHistory(in.History), g.opts.HistoryTokenBudget, g.tokens)
	req := adapter.GenerationRequest{
		Model:           g.opts.Model,
		System:          system,
		History:         history,
		Prompt:          in.Prompt,
		MaxOutputTokens: g.opts.MaxOutputTokens,
	}
	tokensIn := historyTokens + g.tokens.Count(system) + g.tokens.Count(in.Prompt)
	logger.Debug().
		Int("history_turns", len(in.History)).
		Int("history_kept", len(history)).
		Int("tokens_in", tokensIn).
		Bool("learning_mode", in.LearningMode).
		Str("prompt", logging.Redact(in.Prompt, g.opts.LogPrompts)).
		Msg("generation admitted")

	return &Generation{
		Model:    g.opts.Model,
		TokensIn: tokensIn,
		seq:      g.ai.Stream(ctx, req),
		release:  release,
		started:  time.Now(),
	}, nil
}

// Generation is one admitted provider stream.
type Generation struct {
	Model    string
	TokensIn int

	seq     iter.Seq2[string, error]
	release func()
	started time.Time

	mu     sync.Mutex
	chunks int
	err    error
	done   bool
	closed bool
}

// Chunks yields the provider's text chunks. Empty chunks are skipped.
func (g *Generation) Chunks() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for chunk, err := range g.seq {
			if err != nil {
				g.mu.Lock()
				g.err = err
				g.mu.Unlock()
				yield("", err)
				return
			}
			if chunk == "" {
				continue
			}
			g.mu.Lock()
			g.chunks++
			g.mu.Unlock()
			if !yield(chunk, nil) {
				return
			}
		}
		g.mu.Lock()
		g.done = true
		g.mu.Unlock()
	}
}

// Close releases the per-user lock. Safe to call more than once.
func (g *Generation) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()
	g.release()
}

// Stats reports how the stream ended.
func (g *Generation) Stats() (chunks int, completed bool, elapsed time.Duration, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.chunks, g.done, time.Since(g.started), g.err
}
