package seats

import (
	"context"
	"time"

	"cineseat/pkg/logger"
)

// Sweeper periodically clears lapsed holds. Reads never depend on it; it only keeps the
// stored rows close to what readers already see.
type Sweeper struct {
	service  Service
	interval time.Duration
	log      *logger.Logger
	done     chan struct{}
}

func NewSweeper(service Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		service:  service,
		interval: interval,
		log:      logger.GetDefault().WithComponent("seat-sweeper"),
		done:     make(chan struct{}),
	}
}

func (sw *Sweeper) Start(ctx context.Context) {
	sw.log.Info("Starting hold sweeper", "interval", sw.interval.String())
	go sw.run(ctx)
}

func (sw *Sweeper) Stop() {
	close(sw.done)
	sw.log.Info("Hold sweeper stopped")
}

func (sw *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.sweep(ctx)
		case <-sw.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (sw *Sweeper) sweep(ctx context.Context) {
	if _, err := sw.service.SweepExpired(ctx); err != nil {
		sw.log.ErrorWithContext(ctx, "Error sweeping expired holds", err, nil)
	}
}

func (sw *Sweeper) Status() map[string]interface{} {
	return map[string]interface{}{
		"sweep_interval": sw.interval.String(),
		"status":         "running",
	}
}
