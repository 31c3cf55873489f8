package adapter

import "context"

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// TelegramBotAdapter is the outbound side of the Telegram front end.
type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, chatID int64, text string) (messageID int, err error)
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]InlineButton) error
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallback(ctx context.Context, callbackID string) error
}
