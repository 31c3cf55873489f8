package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"codecraft-ai/internal/auth"
	"codecraft-ai/internal/domain"
	"codecraft-ai/internal/domain/ports/adapter"
	"codecraft-ai/internal/infra/i18n"
	"codecraft-ai/internal/infra/logging"
	"codecraft-ai/internal/infra/metrics"
	red "codecraft-ai/internal/infra/redis"
)

const (
	commandsPerMinute  = 20
	callbacksPerMinute = 30
	historyPageSize    = 10
)

// Handler routes Telegram updates to the per-chat assemblers.
type Handler struct {
	bot          adapter.TelegramBotAdapter
	chats        *Chats
	limiter      adapter.RateLimiter
	translator   *i18n.Translator
	editInterval time.Duration
	log          *zerolog.Logger
}

// NewHandler wires the update router. limiter may be nil.
func NewHandler(bot adapter.TelegramBotAdapter, chats *Chats, limiter adapter.RateLimiter, translator *i18n.Translator, editInterval time.Duration, logger *zerolog.Logger) *Handler {
	if editInterval <= 0 {
		editInterval = time.Second
	}
	return &Handler{
		bot:          bot,
		chats:        chats,
		limiter:      limiter,
		translator:   translator,
		editInterval: editInterval,
		log:          logging.Component(logger, "TelegramHandler"),
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return h.handleQuery(ctx, update.CallbackQuery)
	}
	message := update.Message
	if message == nil || message.From == nil || message.Chat == nil {
		return nil
	}

	command := "message"
	if message.IsCommand() {
		command = "/" + message.Command()
	}
	metrics.IncTelegramCommand(command)

	userID := UserID(message.From.ID)
	ctx = logging.WithUserID(ctx, userID)
	if !h.allow(ctx, userID, command, commandsPerMinute) {
		return h.send(ctx, message.Chat.ID, h.translator.T("rate_limited"))
	}

	c, err := h.chats.Get(ctx, message.Chat.ID, message.From.ID, message.From.UserName)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("sign in failed")
		return h.send(ctx, message.Chat.ID, h.translator.T("sign_in_error", err.Error()))
	}

	if message.IsCommand() {
		if fn, ok := h.commandRoutes()[message.Command()]; ok {
			return fn(ctx, c, message)
		}
		return h.send(ctx, message.Chat.ID, h.translator.T("unknown_command", command))
	}
	return h.handlePrompt(ctx, c, message.Text)
}

// allow applies the per-user command limit. Limiter failures let the update through.
func (h *Handler) allow(ctx context.Context, userID, command string, limit int) bool {
	if h.limiter == nil {
		return true
	}
	ok, err := h.limiter.Allow(ctx, red.UserCommandKey(userID, command), limit, time.Minute)
	if err != nil {
		h.log.Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	if !ok {
		metrics.IncRateLimited("telegram")
	}
	return ok
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) error {
	for _, part := range splitMessage(text, maxMessageRunes) {
		if _, err := h.bot.SendMessage(ctx, chatID, part); err != nil {
			return err
		}
	}
	return nil
}

// handlePrompt streams a reply into a placeholder message.
func (h *Handler) handlePrompt(ctx context.Context, c *chat, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if c.assembler.Generating() {
		return h.send(ctx, c.id, h.translator.T("generation_wait"))
	}
	msgID, err := h.bot.SendMessage(ctx, c.id, h.translator.T("generation_placeholder"))
	if err != nil {
		return err
	}
	logger := h.log.With().Int64("tg_chat_id", c.id).Logger()
	ed := newStreamEditor(ctx, h.bot, c.id, msgID, h.editInterval, &logger)
	c.setEditor(ed)
	err = c.assembler.SendPrompt(ctx, text)
	c.setEditor(nil)

	if err == nil {
		reply, _ := c.assembler.Snapshot().LastAI()
		return ed.Flush(reply.Text)
	}

	switch {
	case errors.Is(err, domain.ErrGenerationInFlight) && ed.Latest() == "":
		return ed.Flush(h.translator.T("generation_wait"))
	case errors.Is(err, domain.ErrGenerationAbandoned):
		if partial := ed.Latest(); partial != "" {
			return ed.Flush(partial)
		}
		return ed.Flush(h.translator.T("generation_abandoned"))
	}

	notice := h.failureText(c, err)
	partial := ed.Latest()
	if partial == "" {
		return ed.Flush(notice)
	}
	if ferr := ed.Flush(partial); ferr != nil {
		return ferr
	}
	return h.send(ctx, c.id, notice)
}

// failureText prefers the error message the assembler appended to the conversation.
func (h *Handler) failureText(c *chat, err error) string {
	if last, ok := c.assembler.Snapshot().LastAI(); ok && last.Text == "Error: "+err.Error() {
		return last.Text
	}
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return h.translator.T("rate_limited")
	case auth.IsAuthError(err):
		return h.translator.T("sign_in_error", err.Error())
	}
	return h.translator.T("error_generic")
}
