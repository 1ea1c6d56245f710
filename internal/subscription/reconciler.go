package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flatup/internal/logger"
	"flatup/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const reconcileLockKey = "flatup:reconcile:lock"

// Reconciler sweeps lapsed subscriptions and repairs drifted snapshots.
// A Redis lock keeps concurrent instances from running the same pass.
type Reconciler struct {
	repo     Repository
	redis    *redis.Client
	interval time.Duration
	lockTTL  time.Duration
	now      func() time.Time
}

func NewReconciler(repo Repository, rdb *redis.Client, interval time.Duration) *Reconciler {
	return &Reconciler{
		repo:     repo,
		redis:    rdb,
		interval: interval,
		lockTTL:  5 * time.Minute,
		now:      time.Now,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	logger.Info("reconciler started", "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, ErrReconcileInProgress) {
				logger.WithError(err).Error("reconcile pass failed")
			}
		}
	}
}

func (r *Reconciler) RunOnce(ctx context.Context) (*ReconcileResult, error) {
	token := uuid.NewString()
	ok, err := r.redis.SetNX(ctx, reconcileLockKey, token, r.lockTTL).Result()
	if err != nil {
		metrics.RecordReconcile("failed")
		return nil, fmt.Errorf("acquire reconcile lock: %w", err)
	}
	if !ok {
		metrics.RecordReconcile("skipped")
		return nil, ErrReconcileInProgress
	}
	defer r.release(token)

	now := r.now()
	expired, err := r.repo.ExpireDue(ctx, now)
	if err != nil {
		metrics.RecordReconcile("failed")
		return nil, err
	}
	rebuilt, err := r.repo.RebuildSnapshots(ctx)
	if err != nil {
		metrics.RecordReconcile("failed")
		return nil, err
	}

	if stats, err := r.repo.Stats(ctx, now); err == nil {
		metrics.SetActiveSubscriptions(stats.ActiveByPlan)
	} else {
		logger.Warn("active subscription gauge not refreshed", "error", err)
	}

	metrics.RecordExpired(int(expired))
	metrics.RecordReconcile("success")
	logger.Info("reconcile pass finished", "expired", expired, "rebuilt", rebuilt)

	return &ReconcileResult{Expired: expired, Rebuilt: rebuilt}, nil
}

func (r *Reconciler) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	held, err := r.redis.Get(ctx, reconcileLockKey).Result()
	if err != nil || held != token {
		return
	}
	r.redis.Del(ctx, reconcileLockKey)
}
