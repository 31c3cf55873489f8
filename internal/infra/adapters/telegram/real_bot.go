package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"codecraft-ai/internal/domain/ports/adapter"
	"codecraft-ai/internal/infra/logging"
	"codecraft-ai/internal/infra/worker"
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// UpdateHandler reacts to one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update) error
}

// RealTelegramBotAdapter talks to the Bot API through tgbotapi.
type RealTelegramBotAdapter struct {
	bot *tgbotapi.BotAPI
	log *zerolog.Logger
}

func NewRealTelegramBotAdapter(token string, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	l := logging.Component(logger, "TelegramBot")
	l.Info().Str("username", bot.Self.UserName).Msg("telegram bot authorized")
	return &RealTelegramBotAdapter{bot: bot, log: l}, nil
}

// StartPolling feeds updates to h through pool until ctx is done.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context, h UpdateHandler, pool *worker.Pool) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	pool.Start(ctx)
	defer pool.Stop()

	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			err := pool.Submit(func(ctx context.Context) error {
				return h.HandleUpdate(ctx, up)
			})
			if err != nil {
				r.log.Warn().Err(err).Int("update_id", up.UpdateID).Msg("update dropped")
			}
		}
	}
}

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, err
	}
	return m.MessageID, nil
}

// SendButtons sends a message with an inline keyboard.
// A button with a URL opens a link; otherwise it sends Data (or its label) as callback data.
func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		kr := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				kr = append(kr, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				kr = append(kr, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				kr = append(kr, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, kr)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealTelegramBotAdapter) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.bot.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

// AnswerCallback stops the client-side spinner on an inline button.
func (r *RealTelegramBotAdapter) AnswerCallback(ctx context.Context, callbackID string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}

// SetMenuCommands publishes the command list shown in the Telegram menu.
func (r *RealTelegramBotAdapter) SetMenuCommands(ctx context.Context) error {
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "new", Description: "Start a new conversation"},
		tgbotapi.BotCommand{Command: "history", Description: "Saved conversations"},
		tgbotapi.BotCommand{Command: "rename", Description: "Rename the current conversation"},
		tgbotapi.BotCommand{Command: "mode", Description: "Toggle learning mode"},
		tgbotapi.BotCommand{Command: "stop", Description: "Stop the current reply"},
		tgbotapi.BotCommand{Command: "help", Description: "Show help"},
	)
	_, err := r.bot.Request(cmds)
	return err
}
