package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"codecraft-ai/internal/infra/logging"
	"codecraft-ai/internal/infra/metrics"
)

// Purger deletes logs older than a given age.
type Purger interface {
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// RetentionWorker periodically removes logs past the retention age.
type RetentionWorker struct {
	interval time.Duration
	age      time.Duration
	logs     Purger
	log      *zerolog.Logger
}

func NewRetentionWorker(interval, age time.Duration, logs Purger, logger *zerolog.Logger) *RetentionWorker {
	return &RetentionWorker{
		interval: interval,
		age:      age,
		logs:     logs,
		log:      logging.Component(logger, "RetentionWorker"),
	}
}

// Run sweeps once at start and then on every tick until ctx is done.
func (w *RetentionWorker) Run(ctx context.Context) error {
	if w.age <= 0 {
		w.log.Info().Msg("retention disabled")
		<-ctx.Done()
		return ctx.Err()
	}
	w.log.Info().Dur("age", w.age).Dur("interval", w.interval).Msg("Starting retention worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.sweep(ctx)
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping retention worker")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *RetentionWorker) sweep(ctx context.Context) {
	n, err := w.logs.PurgeOlderThan(ctx, w.age)
	if err != nil {
		w.log.Error().Err(err).Msg("retention sweep failed")
		return
	}
	if n > 0 {
		metrics.AddLogsExpired(n)
	}
}
