package reconcile

import (
	"context"
	"sync"
	"time"

	"cineseat/pkg/logger"
)

// Scheduler runs a full reconciliation pass on a fixed interval.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	log      *logger.Logger
	done     chan struct{}

	mu      sync.Mutex
	lastRun time.Time
	last    *Totals
}

func NewScheduler(engine *Engine, interval time.Duration) *Scheduler {
	return &Scheduler{
		engine:   engine,
		interval: interval,
		log:      logger.GetDefault().WithComponent("reconcile-scheduler"),
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("Starting scheduled reconciliation", "interval", s.interval.String())
	go s.run(ctx)
}

func (s *Scheduler) Stop() {
	close(s.done)
	s.log.Info("Scheduled reconciliation stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.pass(ctx)
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) pass(ctx context.Context) {
	batch, err := s.engine.ReconcileAll(ctx, BatchOptions{})
	if err != nil {
		s.log.ErrorWithContext(ctx, "Error running scheduled reconciliation", err, nil)
	}
	if batch == nil {
		return
	}

	s.mu.Lock()
	s.lastRun = time.Now().UTC()
	totals := batch.Totals
	s.last = &totals
	s.mu.Unlock()

	if totals.Failed > 0 {
		s.log.WarnContext(ctx, "Scheduled reconciliation finished with failures",
			"sessions", totals.Sessions, "failed", totals.Failed)
	}
}

func (s *Scheduler) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"interval": s.interval.String(),
		"status":   "running",
	}
	if s.last != nil {
		status["last_run"] = s.lastRun
		status["last_totals"] = s.last
	}
	return status
}
