// internal/service/reconciler.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/unclebandit/audience-campaigns/internal/metrics"
	"github.com/unclebandit/audience-campaigns/internal/queue"
	"github.com/unclebandit/audience-campaigns/internal/repository"
)

// Reconciler re-enqueues delivery tasks whose rows have stayed PENDING
// longer than StaleAfter. It is independent of dispatch and only runs when
// configured.
type Reconciler struct {
	DeliveryLogRepo repository.DeliveryLogRepositoryInterface
	Queue           queue.Producer
	TaskQueue       string
	StaleAfter      time.Duration
	BatchSize       int
	Metrics         *metrics.Metrics
	Log             *slog.Logger

	Now func() time.Time
}

func (r *Reconciler) logger() *slog.Logger {
	if r.Log == nil {
		return slog.Default()
	}
	return r.Log
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// Sweep re-enqueues one batch of stale rows and returns how many were
// handed back to the queue. Each re-enqueued row is touched so the next
// sweep does not pick it up again until it is stale once more.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	batch := r.BatchSize
	if batch <= 0 {
		batch = 500
	}

	stale, err := r.DeliveryLogRepo.ListStalePending(ctx, r.now().Add(-r.StaleAfter), batch)
	if err != nil {
		return 0, fmt.Errorf("list stale deliveries: %w", err)
	}

	requeued := 0
	for _, l := range stale {
		if err := EnqueueTask(ctx, r.Queue, r.TaskQueue, l); err != nil {
			r.logger().WarnContext(ctx, "re-enqueue failed", "delivery_log_id", l.ID, "error", err)
			continue
		}
		if err := r.DeliveryLogRepo.Touch(ctx, l.ID); err != nil {
			r.logger().WarnContext(ctx, "touch failed", "delivery_log_id", l.ID, "error", err)
		}
		requeued++
	}

	r.Metrics.Reconciled(requeued)
	if len(stale) > 0 {
		r.logger().InfoContext(ctx, "reconciled stale deliveries", "found", len(stale), "requeued", requeued)
	}
	return requeued, nil
}

// Run sweeps every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger().Info("reconciler started", "interval", interval, "stale_after", r.StaleAfter)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger().ErrorContext(ctx, "reconcile sweep failed", "error", err)
			}
		}
	}
}
