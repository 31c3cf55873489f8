// Package sqlite is the single-file log store used for local and dev runs.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"codecraft-ai/internal/domain"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/repository"
)

var (
	_ repository.LogRepository      = (*LogRepo)(nil)
	_ repository.TransactionManager = (*TxManager)(nil)
)

// ChatLog is the gorm row for model.Log.
type ChatLog struct {
	UserID       string    `gorm:"primaryKey"`
	ChatID       string    `gorm:"primaryKey"`
	Ts           time.Time `gorm:"index;not null"`
	Prompt       string    `gorm:"not null;default:''"`
	Explanation  string    `gorm:"not null;default:''"`
	LearningMode bool      `gorm:"not null;default:false"`
	UpdatedAt    time.Time
}

func (ChatLog) TableName() string { return "chat_logs" }

// Open opens (or creates) the database at path and migrates it.
// Use "file::memory:" for an in-memory store.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&ChatLog{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

type LogRepo struct {
	db *gorm.DB
}

func NewLogRepo(db *gorm.DB) *LogRepo { return &LogRepo{db: db} }

func (r *LogRepo) conn(ctx context.Context, qx any) (*gorm.DB, error) {
	switch v := qx.(type) {
	case nil:
		return r.db.WithContext(ctx), nil
	case *gorm.DB:
		return v.WithContext(ctx), nil
	default:
		return nil, domain.ErrInvalidExecContext
	}
}

func (r *LogRepo) Save(ctx context.Context, qx any, l *model.Log) error {
	db, err := r.conn(ctx, qx)
	if err != nil {
		return err
	}
	row := ChatLog{
		UserID:       l.UserID,
		ChatID:       l.ChatID,
		Ts:           l.Timestamp.UTC(),
		Prompt:       l.Prompt,
		Explanation:  l.Explanation,
		LearningMode: l.LearningMode,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"ts", "prompt", "explanation", "learning_mode", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save log: %w", err)
	}
	return nil
}

func (r *LogRepo) FindByID(ctx context.Context, qx any, userID, chatID string) (*model.Log, error) {
	db, err := r.conn(ctx, qx)
	if err != nil {
		return nil, err
	}
	var row ChatLog
	err = db.Where("user_id = ? AND chat_id = ?", userID, chatID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	l := toModel(row)
	return &l, nil
}

func (r *LogRepo) ListByUser(ctx context.Context, qx any, userID string) ([]model.Log, error) {
	db, err := r.conn(ctx, qx)
	if err != nil {
		return nil, err
	}
	var rows []ChatLog
	if err := db.Where("user_id = ?", userID).Order("ts DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	out := make([]model.Log, 0, len(rows))
	for _, row := range rows {
		out = append(out, toModel(row))
	}
	return out, nil
}

func (r *LogRepo) Delete(ctx context.Context, qx any, userID, chatID string) error {
	db, err := r.conn(ctx, qx)
	if err != nil {
		return err
	}
	return db.Where("user_id = ? AND chat_id = ?", userID, chatID).Delete(&ChatLog{}).Error
}

func (r *LogRepo) UpdateTitle(ctx context.Context, qx any, userID, chatID, title string) error {
	db, err := r.conn(ctx, qx)
	if err != nil {
		return err
	}
	res := db.Model(&ChatLog{}).Where("user_id = ? AND chat_id = ?", userID, chatID).Update("prompt", title)
	if res.Error != nil {
		return fmt.Errorf("update title: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("ts < ?", cutoff.UTC()).Delete(&ChatLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func toModel(row ChatLog) model.Log {
	return model.Log{
		UserID:       row.UserID,
		ChatID:       row.ChatID,
		Timestamp:    row.Ts.UTC(),
		Prompt:       row.Prompt,
		Explanation:  row.Explanation,
		LearningMode: row.LearningMode,
	}
}

// TxManager runs fn in a gorm transaction. The *gorm.DB handle is passed as tx.
// SQLite serializes writers, so txOpt is ignored.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager { return &TxManager{db: db} }

func (m *TxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}
