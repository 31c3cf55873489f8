package telegram

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"codecraft-ai/internal/domain/ports/adapter"
	"codecraft-ai/internal/infra/logging"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// Sent is one outbound call recorded by NoopBotAdapter.
type Sent struct {
	ChatID    int64
	MessageID int
	Text      string
	Buttons   [][]adapter.InlineButton
	Edit      bool
}

// NoopBotAdapter logs outbound messages instead of calling Telegram and keeps a
// transcript of them. Used for dry runs and tests.
type NoopBotAdapter struct {
	mu     sync.Mutex
	nextID int
	sent   []Sent
	acks   []string
	log    *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	return &NoopBotAdapter{log: logging.Component(logger, "NoopTelegram")}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.sent = append(b.sent, Sent{ChatID: chatID, MessageID: id, Text: text})
	b.mu.Unlock()
	b.log.Debug().Int64("chat_id", chatID).Int("message_id", id).Str("text", text).Msg("send")
	return id, nil
}

func (b *NoopBotAdapter) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.nextID++
	b.sent = append(b.sent, Sent{ChatID: chatID, MessageID: b.nextID, Text: text, Buttons: rows})
	b.mu.Unlock()
	b.log.Debug().Int64("chat_id", chatID).Str("text", text).Int("rows", len(rows)).Msg("send buttons")
	return nil
}

func (b *NoopBotAdapter) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.sent = append(b.sent, Sent{ChatID: chatID, MessageID: messageID, Text: text, Edit: true})
	b.mu.Unlock()
	b.log.Debug().Int64("chat_id", chatID).Int("message_id", messageID).Str("text", text).Msg("edit")
	return nil
}

func (b *NoopBotAdapter) AnswerCallback(ctx context.Context, callbackID string) error {
	b.mu.Lock()
	b.acks = append(b.acks, callbackID)
	b.mu.Unlock()
	return nil
}

// Transcript returns a copy of everything sent so far.
func (b *NoopBotAdapter) Transcript() []Sent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Sent(nil), b.sent...)
}

func (b *NoopBotAdapter) Answered() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.acks...)
}
