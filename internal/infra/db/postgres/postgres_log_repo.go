package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"codecraft-ai/internal/domain"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/repository"
	"codecraft-ai/internal/infra/security"
)

var _ repository.LogRepository = (*LogRepo)(nil)

// LogRepo stores chat logs in the chat_logs table. When an encryption service
// is configured, explanations are sealed at rest and the row is flagged.
type LogRepo struct {
	pool *pgxpool.Pool
	enc  *security.EncryptionService
}

// NewLogRepo returns a repository on pool. enc may be nil.
func NewLogRepo(pool *pgxpool.Pool, enc *security.EncryptionService) *LogRepo {
	return &LogRepo{pool: pool, enc: enc}
}

func (r *LogRepo) Save(ctx context.Context, qx any, l *model.Log) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	explanation, encrypted := l.Explanation, false
	if r.enc != nil {
		if explanation, err = r.enc.Encrypt(l.Explanation, security.LogOwner(l.UserID, l.ChatID)); err != nil {
			return fmt.Errorf("encrypt explanation: %w", err)
		}
		encrypted = true
	}
	const q = `
INSERT INTO chat_logs (user_id, chat_id, ts, prompt, explanation, learning_mode, encrypted)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (user_id, chat_id) DO UPDATE SET
  ts = EXCLUDED.ts,
  prompt = EXCLUDED.prompt,
  explanation = EXCLUDED.explanation,
  learning_mode = EXCLUDED.learning_mode,
  encrypted = EXCLUDED.encrypted,
  updated_at = NOW();`
	if _, err := ex.Exec(ctx, q, l.UserID, l.ChatID, l.Timestamp.UTC(), l.Prompt, explanation, l.LearningMode, encrypted); err != nil {
		return fmt.Errorf("save log: %w", err)
	}
	return nil
}

func (r *LogRepo) FindByID(ctx context.Context, qx any, userID, chatID string) (*model.Log, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT user_id, chat_id, ts, prompt, explanation, learning_mode, encrypted
FROM chat_logs WHERE user_id=$1 AND chat_id=$2;`
	l, err := r.scan(ex.QueryRow(ctx, q, userID, chatID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *LogRepo) ListByUser(ctx context.Context, qx any, userID string) ([]model.Log, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT user_id, chat_id, ts, prompt, explanation, learning_mode, encrypted
FROM chat_logs WHERE user_id=$1 ORDER BY ts DESC;`
	rows, err := ex.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()
	out := []model.Log{}
	for rows.Next() {
		l, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// Delete is idempotent.
func (r *LogRepo) Delete(ctx context.Context, qx any, userID, chatID string) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `DELETE FROM chat_logs WHERE user_id=$1 AND chat_id=$2;`, userID, chatID)
	return err
}

func (r *LogRepo) UpdateTitle(ctx context.Context, qx any, userID, chatID, title string) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `UPDATE chat_logs SET prompt=$3, updated_at=NOW() WHERE user_id=$1 AND chat_id=$2;`
	tag, err := ex.Exec(ctx, q, userID, chatID, title)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chat_logs WHERE ts < $1;`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *LogRepo) scan(row pgx.Row) (*model.Log, error) {
	var (
		l         model.Log
		encrypted bool
	)
	if err := row.Scan(&l.UserID, &l.ChatID, &l.Timestamp, &l.Prompt, &l.Explanation, &l.LearningMode, &encrypted); err != nil {
		return nil, err
	}
	if encrypted {
		if r.enc == nil {
			return nil, fmt.Errorf("log %s is encrypted but no key is configured", l.ChatID)
		}
		pt, err := r.enc.Decrypt(l.Explanation, security.LogOwner(l.UserID, l.ChatID))
		if err != nil {
			return nil, fmt.Errorf("decrypt explanation: %w", err)
		}
		l.Explanation = pt
	}
	l.Timestamp = l.Timestamp.UTC()
	return &l, nil
}
