package repository

import (
	"context"
	"time"

	"codecraft-ai/internal/domain/model"
)

// -----------------------------
// Chat logs
// -----------------------------

type LogRepository interface {
	// Save upserts the log keyed by (user_id, chat_id).
	Save(ctx context.Context, qx any, log *model.Log) error
	FindByID(ctx context.Context, qx any, userID, chatID string) (*model.Log, error)
	// ListByUser returns the user's logs, newest first.
	ListByUser(ctx context.Context, qx any, userID string) ([]model.Log, error)
	// Delete is idempotent; deleting a missing log is not an error.
	Delete(ctx context.Context, qx any, userID, chatID string) error
	// UpdateTitle rewrites only the prompt field. Returns domain.ErrNotFound for unknown logs.
	UpdateTitle(ctx context.Context, qx any, userID, chatID, title string) error
	// DeleteOlderThan removes logs across all users created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
