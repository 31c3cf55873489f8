package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"codecraft-ai/internal/domain"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/repository"
	"codecraft-ai/internal/infra/logging"
)

// Compile-time check
var _ LogUseCase = (*logUC)(nil)

// LogUseCase serves the stored chat logs of the gateway.
type LogUseCase interface {
	Save(ctx context.Context, log *model.Log) error
	List(ctx context.Context, userID string) ([]model.Log, error)
	Delete(ctx context.Context, userID, chatID string) error
	UpdateTitle(ctx context.Context, userID, chatID, title string) error
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

type logUC struct {
	logs repository.LogRepository
	tm   repository.TransactionManager
	log  *zerolog.Logger
	now  func() time.Time
}

func NewLogUseCase(logs repository.LogRepository, tm repository.TransactionManager, logger *zerolog.Logger) *logUC {
	return &logUC{
		logs: logs,
		tm:   tm,
		log:  logging.Component(logger, "LogUC"),
		now:  time.Now,
	}
}

func (u *logUC) Save(ctx context.Context, l *model.Log) error {
	defer logging.TraceDuration(u.log, "LogUC.Save")()
	if err := l.Validate(); err != nil {
		return err
	}
	if err := u.logs.Save(ctx, nil, l); err != nil {
		logging.With(ctx, u.log).Error().Err(err).Msg("failed to save log")
		return fmt.Errorf("save log: %w", err)
	}
	return nil
}

func (u *logUC) List(ctx context.Context, userID string) ([]model.Log, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user_id: %w", domain.ErrInvalidArgument)
	}
	logs, err := u.logs.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	if logs == nil {
		logs = []model.Log{}
	}
	model.SortLogsNewestFirst(logs)
	return logs, nil
}

func (u *logUC) Delete(ctx context.Context, userID, chatID string) error {
	if userID == "" || chatID == "" {
		return domain.ErrInvalidArgument
	}
	if err := u.logs.Delete(ctx, nil, userID, chatID); err != nil {
		return fmt.Errorf("delete log: %w", err)
	}
	return nil
}

// UpdateTitle rewrites the prompt of an existing log.
func (u *logUC) UpdateTitle(ctx context.Context, userID, chatID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("new_title: %w", domain.ErrInvalidArgument)
	}
	if userID == "" || chatID == "" {
		return domain.ErrInvalidArgument
	}
	run := func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.logs.FindByID(ctx, tx, userID, chatID); err != nil {
			return err
		}
		return u.logs.UpdateTitle(ctx, tx, userID, chatID, title)
	}
	if u.tm == nil {
		return run(ctx, nil)
	}
	return u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, run)
}

// PurgeOlderThan deletes logs whose timestamp is older than age.
func (u *logUC) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		return 0, nil
	}
	cutoff := u.now().Add(-age)
	n, err := u.logs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge logs: %w", err)
	}
	if n > 0 {
		u.log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("expired logs removed")
	}
	return n, nil
}
