package worker

import (
	"context"
	"sync"
	"time"

	"github.com/Jae876/crestara/internal/observability"
	"github.com/Jae876/crestara/internal/service"
	"go.uber.org/zap"
)

// MiningWorker drives the recurring mining payout cycle. Safe to run on
// several instances at once: cycle claims use FOR UPDATE SKIP LOCKED and the
// per-position cycle guard makes double payment impossible.
type MiningWorker struct {
	svc      *service.MiningService
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMiningWorker constructs a worker with a default daily interval.
func NewMiningWorker(svc *service.MiningService) *MiningWorker {
	return &MiningWorker{
		svc:      svc,
		interval: 24 * time.Hour,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the run interval.
func (w *MiningWorker) WithInterval(interval time.Duration) *MiningWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and runs the payout cycle at the configured interval.
func (w *MiningWorker) Start(ctx context.Context) {
	zap.L().Info("mining worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Catch up on any cycle missed while the service was down.
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("mining worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("mining worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *MiningWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *MiningWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *MiningWorker) runOnce(ctx context.Context) {
	if _, err := w.svc.RunPayoutCycle(ctx, time.Now().UTC()); err != nil {
		observability.IncrementWorkerRun("mining_payout", "failed")
		zap.L().Error("mining payout cycle failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("mining_payout", "success")
}
