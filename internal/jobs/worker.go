package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobProcessor runs one unit of periodic work.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

type WorkerConfig struct {
	Interval time.Duration
	// RunOnStart runs the processor once before waiting for the first tick.
	RunOnStart bool
	// RunTimeout bounds a single run; zero means the interval.
	RunTimeout time.Duration
}

// Worker calls a JobProcessor on a fixed interval until stopped. A failed
// run is logged and the next tick runs again.
type Worker struct {
	processor JobProcessor
	cfg       WorkerConfig
	logger    *zap.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewWorker(processor JobProcessor, cfg WorkerConfig, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = cfg.Interval
	}
	return &Worker{
		processor: processor,
		cfg:       cfg,
		logger:    logger,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start blocks until ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.logger.Info("worker started", zap.Duration("interval", w.cfg.Interval))

	if w.cfg.RunOnStart {
		w.run(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", zap.String("reason", "context done"))
			return
		case <-w.stopChan:
			w.logger.Info("worker stopped", zap.String("reason", "stop requested"))
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *Worker) run(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, w.cfg.RunTimeout)
	defer cancel()

	start := time.Now()
	if err := w.processor.ProcessJobs(runCtx); err != nil {
		w.logger.Error("job run failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	w.logger.Debug("job run complete", zap.Duration("duration", time.Since(start)))
}

// Stop asks the loop to exit and waits for the run in progress. It is safe to
// call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
}
