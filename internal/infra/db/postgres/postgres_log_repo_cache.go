package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/repository"
	"codecraft-ai/internal/infra/logging"
	"codecraft-ai/internal/infra/metrics"
	red "codecraft-ai/internal/infra/redis"
	"codecraft-ai/internal/infra/security"
)

var _ repository.LogRepository = (*logRepoCacheDecorator)(nil)

// logRepoCacheDecorator caches each user's log list. Writes invalidate the
// user's entry. Purges do not, so expired logs can linger until ttl.
type logRepoCacheDecorator struct {
	inner repository.LogRepository
	cache red.RedisClient
	enc   *security.EncryptionService
	ttl   time.Duration
	log   *zerolog.Logger
}

// NewLogRepoCacheDecorator wraps inner. When enc is set, cached lists are sealed too.
func NewLogRepoCacheDecorator(inner repository.LogRepository, cache red.RedisClient, enc *security.EncryptionService, ttl time.Duration, logger *zerolog.Logger) repository.LogRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &logRepoCacheDecorator{
		inner: inner,
		cache: cache,
		enc:   enc,
		ttl:   ttl,
		log:   logging.Component(logger, "LogCache"),
	}
}

func logsKey(userID string) string { return "logs:" + userID }

func (d *logRepoCacheDecorator) ListByUser(ctx context.Context, qx any, userID string) ([]model.Log, error) {
	key := logsKey(userID)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		if logs, ok := d.decode(key, val); ok {
			metrics.IncCacheRequest("logs", "hit")
			return logs, nil
		}
	} else if !errors.Is(err, red.Nil) {
		d.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	metrics.IncCacheRequest("logs", "miss")
	logs, err := d.inner.ListByUser(ctx, qx, userID)
	if err != nil {
		return nil, err
	}
	if blob, ok := d.encode(key, logs); ok {
		if err := d.cache.Set(ctx, key, blob, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return logs, nil
}

func (d *logRepoCacheDecorator) FindByID(ctx context.Context, qx any, userID, chatID string) (*model.Log, error) {
	return d.inner.FindByID(ctx, qx, userID, chatID)
}

func (d *logRepoCacheDecorator) Save(ctx context.Context, qx any, l *model.Log) error {
	d.invalidate(ctx, l.UserID)
	return d.inner.Save(ctx, qx, l)
}

func (d *logRepoCacheDecorator) Delete(ctx context.Context, qx any, userID, chatID string) error {
	d.invalidate(ctx, userID)
	return d.inner.Delete(ctx, qx, userID, chatID)
}

func (d *logRepoCacheDecorator) UpdateTitle(ctx context.Context, qx any, userID, chatID, title string) error {
	d.invalidate(ctx, userID)
	return d.inner.UpdateTitle(ctx, qx, userID, chatID, title)
}

func (d *logRepoCacheDecorator) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return d.inner.DeleteOlderThan(ctx, cutoff)
}

func (d *logRepoCacheDecorator) invalidate(ctx context.Context, userID string) {
	if err := d.cache.Del(ctx, logsKey(userID)); err != nil {
		d.log.Warn().Err(err).Str("user_id", userID).Msg("cache invalidation failed")
	}
}

func (d *logRepoCacheDecorator) encode(key string, logs []model.Log) (string, bool) {
	b, err := json.Marshal(logs)
	if err != nil {
		return "", false
	}
	if d.enc == nil {
		return string(b), true
	}
	sealed, err := d.enc.Encrypt(string(b), key)
	if err != nil {
		return "", false
	}
	return sealed, true
}

func (d *logRepoCacheDecorator) decode(key, val string) ([]model.Log, bool) {
	if d.enc != nil {
		pt, err := d.enc.Decrypt(val, key)
		if err != nil {
			return nil, false
		}
		val = pt
	}
	var logs []model.Log
	if json.Unmarshal([]byte(val), &logs) != nil {
		return nil, false
	}
	if logs == nil {
		logs = []model.Log{}
	}
	return logs, true
}
