package usecase

import (
	"context"
	"time"

	"study-sync/internal/domain/match"
	"study-sync/internal/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SweeperOptions struct {
	Interval time.Duration
	LockTTL  time.Duration
}

// ExpirySweeper moves overdue pending matches to expired. Every tick is
// idempotent, so a missed or failed tick is simply retried on the next one.
type ExpirySweeper struct {
	matches match.Repository
	lock    SweepLock
	opts    SweeperOptions
	now     func() time.Time
	logger  *zap.Logger
}

func NewExpirySweeper(matches match.Repository, lock SweepLock, opts SweeperOptions, logger *zap.Logger) *ExpirySweeper {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweeper{
		matches: matches,
		lock:    lock,
		opts:    opts,
		now:     time.Now,
		logger:  logger.Named("sweeper"),
	}
}

// Tick runs one sweep. When another replica holds the lock it returns 0
// without touching storage.
func (s *ExpirySweeper) Tick(ctx context.Context) (int64, error) {
	if s.lock != nil && s.lock.Available() {
		token := uuid.NewString()
		ok, err := s.lock.SetIfNotExists(ctx, SweepLockKey, token, s.opts.LockTTL)
		switch {
		case err != nil:
			// BulkExpire is idempotent.
			observability.RecordSweep("lock_error", 0)
			s.logger.Warn("sweep lock unavailable, sweeping without it", zap.Error(err))
		case !ok:
			observability.RecordSweep("skipped", 0)
			s.logger.Debug("sweep skipped, lock held elsewhere")
			return 0, nil
		default:
			defer func() {
				if err := s.lock.Release(context.WithoutCancel(ctx), SweepLockKey, token); err != nil {
					s.logger.Warn("sweep lock release failed", zap.Error(err))
				}
			}()
		}
	}

	n, err := s.matches.BulkExpire(ctx, s.now().UTC())
	if err != nil {
		observability.RecordSweep("error", 0)
		return 0, err
	}
	observability.RecordSweep("ok", n)
	if n > 0 {
		s.logger.Info("expired pending matches", zap.Int64("count", n))
	}
	return n, nil
}

// Run ticks immediately and then every Interval until ctx is done.
func (s *ExpirySweeper) Run(ctx context.Context) {
	s.logger.Info("sweeper started", zap.Duration("interval", s.opts.Interval))
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("sweep failed, retrying next tick", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
