package worker

import (
	"context"
	"sync"
	"time"

	"github.com/Jae876/crestara/internal/observability"
	"github.com/Jae876/crestara/internal/service"
	"go.uber.org/zap"
)

// IntegrityWorker runs periodic ledger integrity checks.
type IntegrityWorker struct {
	svc      *service.IntegrityService
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewIntegrityWorker(svc *service.IntegrityService) *IntegrityWorker {
	return &IntegrityWorker{
		svc:      svc,
		interval: time.Hour,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the run interval.
func (w *IntegrityWorker) WithInterval(interval time.Duration) *IntegrityWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and runs the checks at the configured interval.
func (w *IntegrityWorker) Start(ctx context.Context) {
	zap.L().Info("integrity worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("integrity worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("integrity worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *IntegrityWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *IntegrityWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *IntegrityWorker) runOnce(ctx context.Context) {
	if err := w.svc.Run(ctx); err != nil {
		observability.IncrementWorkerRun("integrity", "failed")
		zap.L().Error("integrity run failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("integrity", "success")
}
