package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"codecraft-ai/internal/domain/ports/adapter"
	"codecraft-ai/internal/infra/gateway"
)

type commandHandler func(ctx context.Context, c *chat, message *tgbotapi.Message) error

func (h *Handler) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":   h.handleStartCommand,
		"new":     h.handleNewCommand,
		"history": h.handleHistoryCommand,
		"rename":  h.handleRenameCommand,
		"mode":    h.handleModeCommand,
		"stop":    h.handleStopCommand,
		"help":    h.handleHelpCommand,
	}
}

func (h *Handler) handleStartCommand(ctx context.Context, c *chat, _ *tgbotapi.Message) error {
	return h.sendMainMenu(ctx, c.id, h.translator.T("welcome_message"))
}

func (h *Handler) handleNewCommand(ctx context.Context, c *chat, _ *tgbotapi.Message) error {
	c.assembler.StartNewSession()
	return h.send(ctx, c.id, h.translator.T("new_session"))
}

func (h *Handler) handleHistoryCommand(ctx context.Context, c *chat, _ *tgbotapi.Message) error {
	return h.sendHistoryMenu(ctx, c)
}

func (h *Handler) handleRenameCommand(ctx context.Context, c *chat, message *tgbotapi.Message) error {
	title := strings.TrimSpace(message.CommandArguments())
	if title == "" {
		return h.send(ctx, c.id, h.translator.T("rename_usage"))
	}
	if err := c.assembler.RenameActiveSession(ctx, title); err != nil {
		return h.send(ctx, c.id, h.translator.T("rename_error", gateway.Detail(err)))
	}
	return h.send(ctx, c.id, h.translator.T("rename_done", title))
}

func (h *Handler) handleModeCommand(ctx context.Context, c *chat, _ *tgbotapi.Message) error {
	return h.toggleMode(ctx, c)
}

func (h *Handler) handleStopCommand(ctx context.Context, c *chat, _ *tgbotapi.Message) error {
	if !c.assembler.Generating() {
		return h.send(ctx, c.id, h.translator.T("generation_idle"))
	}
	c.assembler.Cancel()
	return h.send(ctx, c.id, h.translator.T("generation_stopped"))
}

func (h *Handler) handleHelpCommand(ctx context.Context, c *chat, _ *tgbotapi.Message) error {
	return h.send(ctx, c.id, h.translator.T("help_message"))
}

func (h *Handler) toggleMode(ctx context.Context, c *chat) error {
	if c.assembler.ToggleLearningMode() {
		return h.send(ctx, c.id, h.translator.T("mode_on"))
	}
	return h.send(ctx, c.id, h.translator.T("mode_off"))
}

// sendMainMenu shows the main actions as inline buttons.
func (h *Handler) sendMainMenu(ctx context.Context, chatID int64, intro string) error {
	if strings.TrimSpace(intro) == "" {
		intro = h.translator.T("menu_prompt")
	}
	rows := [][]adapter.InlineButton{
		{{Text: h.translator.T("button_new_chat"), Data: "cmd:new"}},
		{{Text: h.translator.T("button_history"), Data: "cmd:history"}},
		{{Text: h.translator.T("button_mode"), Data: "cmd:mode"}},
	}
	return h.bot.SendButtons(ctx, chatID, intro, rows)
}

// sendHistoryMenu lists the newest logs with open and delete buttons.
func (h *Handler) sendHistoryMenu(ctx context.Context, c *chat) error {
	logs, err := c.history.List(ctx)
	if err != nil {
		return h.send(ctx, c.id, h.translator.T("history_error", gateway.Detail(err)))
	}
	menu := []adapter.InlineButton{{Text: h.translator.T("button_menu"), Data: "cmd:menu"}}
	if len(logs) == 0 {
		return h.bot.SendButtons(ctx, c.id, h.translator.T("history_empty"), [][]adapter.InlineButton{menu})
	}
	if len(logs) > historyPageSize {
		logs = logs[:historyPageSize]
	}
	rows := make([][]adapter.InlineButton, 0, len(logs)+1)
	for _, l := range logs {
		rows = append(rows, []adapter.InlineButton{
			{Text: label(l.Prompt, 40), Data: "hist:open:" + l.ChatID},
			{Text: h.translator.T("button_delete"), Data: "hist:del:" + l.ChatID},
		})
	}
	rows = append(rows, menu)
	return h.bot.SendButtons(ctx, c.id, h.translator.T("history_header"), rows)
}

// label shortens a title to n runes on one line.
func label(title string, n int) string {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return "(untitled)"
	}
	r := []rune(title)
	if len(r) <= n {
		return title
	}
	return string(r[:n-1]) + "…"
}
