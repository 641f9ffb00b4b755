package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/smkbandara/cbt-backend/internal/config"
	"github.com/smkbandara/cbt-backend/internal/service"
)

// ExpiryWorker sweeps ongoing sessions whose countdown has run out and
// finalizes them as completed. No per-session timers exist; a session that
// already reached a terminal state by any other path is simply not in the
// sweep, so cancellation is implicit.
type ExpiryWorker struct {
	sessions *service.SessionService
	interval time.Duration
	log      zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(sessions *service.SessionService, cfg *config.Config, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		sessions: sessions,
		interval: cfg.ExpirySweep,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			expired, err := w.sessions.ExpireOverdue(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("Expiry sweep failed")
				continue
			}
			if expired > 0 {
				w.log.Info().Int("count", expired).Msg("Expired overdue sessions")
			}
		}
	}
}
