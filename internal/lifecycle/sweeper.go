package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/x402dev/paygate/internal/events"
	"github.com/x402dev/paygate/internal/metrics"
	"github.com/x402dev/paygate/internal/pending"
)

// Sweeper periodically evicts records whose payment window has elapsed. It
// races harmlessly with lazy eviction on read paths and with deferred
// post-execution cleanup: removal is idempotent.
type Sweeper struct {
	store    *pending.Store
	interval time.Duration
	events   events.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger

	now func() time.Time
}

// NewSweeper creates a new expiry sweeper
func NewSweeper(store *pending.Store, interval time.Duration, pub events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}

	return &Sweeper{
		store:    store,
		interval: interval,
		events:   pub,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps at the configured interval until ctx is canceled
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Expiry sweeper started",
		slog.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper stopped")
			return

		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	evicted := s.store.SweepExpired(s.now())
	if len(evicted) == 0 {
		return
	}

	s.metrics.JobsExpired.Add(float64(len(evicted)))
	for _, jobID := range evicted {
		s.events.Publish(ctx, events.JobEvent{
			Kind:  events.KindExpired,
			JobID: jobID,
			At:    s.now().UTC(),
		})
	}

	s.logger.Info("Cleaned up expired jobs",
		slog.Int("count", len(evicted)),
	)
}
