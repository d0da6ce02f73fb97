package service

import (
	"context"
	"time"

	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/metrics"
	"github.com/dtroode/coursemarket-auth/internal/model"
)

// Janitor periodically deletes sessions that can no longer be refreshed.
type Janitor struct {
	sessions model.SessionStore
	interval time.Duration
	metrics  *metrics.Auth
	logger   *logger.Logger
	now      func() time.Time
}

func NewJanitor(sessions model.SessionStore, interval time.Duration, metrics *metrics.Auth, logger *logger.Logger) *Janitor {
	return &Janitor{
		sessions: sessions,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Sweep runs one cleanup pass.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	n, err := j.sessions.DeleteStale(ctx, j.now())
	if err != nil {
		return 0, err
	}
	j.metrics.SessionsPurged(n)
	return n, nil
}

// Run sweeps immediately and then every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

func (j *Janitor) tick(ctx context.Context) {
	n, err := j.Sweep(ctx)
	if err != nil {
		j.logger.Warn("Session janitor: sweep failed", "error", err.Error())
		return
	}
	if n > 0 {
		j.logger.Info("Session janitor: stale sessions deleted", "count", n)
	}
}
