// internal/remote/worker.go
//
// Timer-driven sync worker. Retries the backlog on a fixed interval and
// on explicit triggers (manual sync, reconnection detection). Flush
// failures are logged and retried on the next tick; they never surface
// to the guessing loop.

package remote

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Worker drives Backlog.Flush on an interval and on demand.
type Worker struct {
	backlog  *Backlog
	interval time.Duration
	trigger  chan struct{}
}

// NewWorker builds a worker around the backlog.
func NewWorker(backlog *Backlog, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		backlog:  backlog,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate flush. Non-blocking; a flush already
// requested is not queued twice.
func (w *Worker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run loops until the context is cancelled. Intended as a goroutine
// started from main.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.trigger:
		}
		w.flushOnce(ctx)
	}
}

func (w *Worker) flushOnce(ctx context.Context) {
	synced, err := w.backlog.Flush(ctx)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("score sync failed, records left queued")
	case synced > 0:
		log.Info().Int("synced", synced).Msg("score sync complete")
	}
}
