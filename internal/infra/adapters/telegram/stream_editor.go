package telegram

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"codecraft-ai/internal/domain/ports/adapter"
	"codecraft-ai/internal/infra/metrics"
)

// maxMessageRunes is the Bot API limit on message text.
const maxMessageRunes = 4096

// streamEditor mirrors a growing reply into one Telegram message.
// Intermediate edits are rate limited; Flush always writes the final text.
type streamEditor struct {
	ctx    context.Context
	bot    adapter.TelegramBotAdapter
	chatID int64
	msgID  int
	lim    *rate.Limiter
	log    *zerolog.Logger

	mu     sync.Mutex
	latest string
	shown  string
}

func newStreamEditor(ctx context.Context, bot adapter.TelegramBotAdapter, chatID int64, msgID int, interval time.Duration, logger *zerolog.Logger) *streamEditor {
	return &streamEditor{
		ctx:    ctx,
		bot:    bot,
		chatID: chatID,
		msgID:  msgID,
		lim:    rate.NewLimiter(rate.Every(interval), 1),
		log:    logger,
	}
}

// Update records text and edits the message when the limiter allows it.
func (e *streamEditor) Update(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latest = text
	if !e.lim.Allow() {
		metrics.IncTelegramEdit("throttled")
		return
	}
	_ = e.editLocked(preview(text))
}

// Latest is the most recent text passed to Update.
func (e *streamEditor) Latest() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest
}

// Flush writes text in full. Text beyond one message continues in new messages.
func (e *streamEditor) Flush(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latest = text
	parts := splitMessage(text, maxMessageRunes)
	if len(parts) == 0 {
		return nil
	}
	if err := e.editLocked(parts[0]); err != nil {
		return err
	}
	for _, p := range parts[1:] {
		if _, err := e.bot.SendMessage(e.ctx, e.chatID, p); err != nil {
			return err
		}
	}
	return nil
}

func (e *streamEditor) editLocked(text string) error {
	if text == "" || text == e.shown {
		return nil
	}
	if err := e.bot.EditMessage(e.ctx, e.chatID, e.msgID, text); err != nil {
		metrics.IncTelegramEdit("error")
		e.log.Warn().Err(err).Int64("chat_id", e.chatID).Int("message_id", e.msgID).Msg("edit failed")
		return err
	}
	metrics.IncTelegramEdit("ok")
	e.shown = text
	return nil
}

// preview fits a partial reply into one message.
func preview(text string) string {
	r := []rune(text)
	if len(r) <= maxMessageRunes {
		return text
	}
	return string(r[:maxMessageRunes-1]) + "…"
}

// splitMessage cuts text into pieces of at most limit runes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	var parts []string
	r := []rune(text)
	for len(r) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if r[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(r[:cut]))
		r = r[cut:]
	}
	if len(r) > 0 {
		parts = append(parts, string(r))
	}
	return parts
}
