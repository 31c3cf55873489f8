package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"codecraft-ai/internal/infra/gateway"
	"codecraft-ai/internal/infra/logging"
)

type cbHandler func(ctx context.Context, c *chat, data string) error

type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

var errUnknownCallback = errors.New("unknown callback data")

func (h *Handler) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		"cmd:menu":    h.menuCBRoute,
		"cmd:new":     h.newCBRoute,
		"cmd:history": h.historyCBRoute,
		"cmd:mode":    h.modeCBRoute,
	}
}

// Prefix-match callbacks
func (h *Handler) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{Prefix: "hist:open:", Fn: h.openLogPrefixCBRoute},
		{Prefix: "hist:del:", Fn: h.deleteLogPrefixCBRoute},
	}
}

func (h *Handler) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}
	defer func() { _ = h.bot.AnswerCallback(ctx, query.ID) }()

	chatID := query.From.ID
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}
	data := strings.TrimSpace(query.Data)
	userID := UserID(query.From.ID)
	ctx = logging.WithUserID(ctx, userID)

	if !h.allow(ctx, userID, "cb:"+data, callbacksPerMinute) {
		return h.send(ctx, chatID, h.translator.T("rate_limited"))
	}
	c, err := h.chats.Get(ctx, chatID, query.From.ID, query.From.UserName)
	if err != nil {
		return h.send(ctx, chatID, h.translator.T("sign_in_error", err.Error()))
	}

	if fn, ok := h.cbRoutes()[data]; ok {
		return fn(ctx, c, data)
	}
	for _, pr := range h.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return pr.Fn(ctx, c, strings.TrimPrefix(data, pr.Prefix))
		}
	}
	return errUnknownCallback
}

func (h *Handler) menuCBRoute(ctx context.Context, c *chat, _ string) error {
	return h.sendMainMenu(ctx, c.id, h.translator.T("menu_prompt"))
}

func (h *Handler) newCBRoute(ctx context.Context, c *chat, _ string) error {
	c.assembler.StartNewSession()
	return h.send(ctx, c.id, h.translator.T("new_session"))
}

func (h *Handler) historyCBRoute(ctx context.Context, c *chat, _ string) error {
	return h.sendHistoryMenu(ctx, c)
}

func (h *Handler) modeCBRoute(ctx context.Context, c *chat, _ string) error {
	return h.toggleMode(ctx, c)
}

// openLogPrefixCBRoute resumes a stored conversation and replays its reply.
func (h *Handler) openLogPrefixCBRoute(ctx context.Context, c *chat, chatID string) error {
	for _, l := range c.history.Logs() {
		if l.ChatID != chatID {
			continue
		}
		c.assembler.SelectLog(l)
		if err := h.send(ctx, c.id, h.translator.T("history_opened", label(l.Prompt, 60))); err != nil {
			return err
		}
		return h.send(ctx, c.id, l.Explanation)
	}
	return h.send(ctx, c.id, h.translator.T("history_unknown"))
}

func (h *Handler) deleteLogPrefixCBRoute(ctx context.Context, c *chat, chatID string) error {
	if err := c.history.Delete(ctx, chatID); err != nil {
		return h.send(ctx, c.id, h.translator.T("history_delete_error", gateway.Detail(err)))
	}
	if c.assembler.Snapshot().ChatID == chatID {
		c.assembler.StartNewSession()
	}
	if err := h.send(ctx, c.id, h.translator.T("history_deleted")); err != nil {
		return err
	}
	return h.sendHistoryMenu(ctx, c)
}
