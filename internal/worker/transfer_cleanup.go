// Package worker runs the background jobs of the form sync service.
package worker

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/formsync/internal/pkg/distlock"
	"github.com/ignite/formsync/internal/pkg/logger"
	"github.com/ignite/formsync/internal/service/transfer"
)

const (
	// DefaultCleanupInterval is how often the sweep runs.
	DefaultCleanupInterval = time.Hour

	cleanupLockKey = "transfer-cleanup"
)

// Cleaner is the part of the transfer service the sweep needs.
type Cleaner interface {
	Cleanup(ctx context.Context) (transfer.CleanupResult, error)
}

// TransferCleanupWorker expires overdue pending transfers and purges
// expired ones. Several instances may run; a distributed lock keeps each
// sweep on a single one.
type TransferCleanupWorker struct {
	cleaner  Cleaner
	redis    *redis.Client
	db       *sql.DB
	interval time.Duration
}

// NewTransferCleanupWorker creates the worker. redisClient and db are both
// optional and only used for locking.
func NewTransferCleanupWorker(cleaner Cleaner, redisClient *redis.Client, db *sql.DB, interval time.Duration) *TransferCleanupWorker {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &TransferCleanupWorker{cleaner: cleaner, redis: redisClient, db: db, interval: interval}
}

// Start runs a sweep immediately and then on every tick. It blocks until
// ctx is cancelled.
func (w *TransferCleanupWorker) Start(ctx context.Context) {
	logger.Info("cleanup: starting", "interval", w.interval.String())

	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("cleanup: stopping")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single locked sweep. It reports whether this instance
// ran the sweep.
func (w *TransferCleanupWorker) RunOnce(ctx context.Context) bool {
	// The TTL outlives any sane sweep so a crashed holder frees the lock.
	lock := distlock.NewLock(w.redis, w.db, cleanupLockKey, w.interval)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		logger.Error("cleanup: lock failed", "error", err)
		return false
	}
	if !acquired {
		logger.Debug("cleanup: sweep already running elsewhere")
		return false
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("cleanup: lock release failed", "error", err)
		}
	}()

	start := time.Now()
	res, err := w.cleaner.Cleanup(ctx)
	if err != nil {
		logger.Error("cleanup: sweep failed", "error", err)
		return true
	}
	if res.Expired > 0 || res.Deleted > 0 {
		logger.Info("cleanup: sweep completed",
			"expired", res.Expired,
			"deleted", res.Deleted,
			"duration", time.Since(start).Round(time.Millisecond).String())
	}
	return true
}
