package adapter

import (
	"context"

	"codecraft-ai/internal/domain/model"
)

// GenerateRequest is the body of POST /generate-code.
type GenerateRequest struct {
	UserID              string                   `json:"user_id"`
	Prompt              string                   `json:"prompt"`
	LearningMode        bool                     `json:"learning_mode"`
	ConversationHistory []model.ConversationTurn `json:"conversation_history"`
}

// TextStream delivers decoded text chunks. Recv returns io.EOF after the last chunk.
type TextStream interface {
	Recv() (string, error)
	Close() error
}

// BackendGateway is the remote service that generates code and stores logs.
type BackendGateway interface {
	Generate(ctx context.Context, req GenerateRequest) (TextStream, error)
	SaveLog(ctx context.Context, log model.Log) error
	ListLogs(ctx context.Context, userID string) ([]model.Log, error)
	DeleteLog(ctx context.Context, userID, chatID string) error
	UpdateLogTitle(ctx context.Context, userID, chatID, title string) error
}
