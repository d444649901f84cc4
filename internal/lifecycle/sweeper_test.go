package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/x402dev/paygate/internal/events"
	"github.com/x402dev/paygate/internal/metrics"
	"github.com/x402dev/paygate/internal/pending"
)

func newTestSweeper(store *pending.Store, interval time.Duration) *Sweeper {
	return NewSweeper(
		store,
		interval,
		events.Nop{},
		metrics.New(prometheus.NewRegistry()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestSweeper_Sweep(t *testing.T) {
	now := time.Now()
	store := pending.NewStore()

	store.Put(pending.Record{JobID: "live", Expiry: now.Add(5 * time.Minute)})
	store.Put(pending.Record{JobID: "dead-1", Expiry: now.Add(-time.Second)})
	store.Put(pending.Record{JobID: "dead-2", Expiry: now.Add(-time.Minute)})

	sweeper := newTestSweeper(store, time.Minute)
	sweeper.sweep(context.Background())

	assert.Equal(t, 1, store.Len())

	_, err := store.View("live", now)
	assert.NoError(t, err)
}

func TestSweeper_SweepEmptyStore(t *testing.T) {
	sweeper := newTestSweeper(pending.NewStore(), time.Minute)

	// Must not panic or publish anything
	sweeper.sweep(context.Background())
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	store := pending.NewStore()
	store.Put(pending.Record{JobID: "dead", Expiry: time.Now().Add(-time.Second)})

	sweeper := newTestSweeper(store, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return store.Len() == 0
	}, time.Second, time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}

func TestNewSweeper_DefaultInterval(t *testing.T) {
	sweeper := newTestSweeper(pending.NewStore(), 0)
	assert.Equal(t, time.Minute, sweeper.interval)
}
