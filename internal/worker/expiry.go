package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hostbay/sitehost-api/internal/service/notifier"
)

const sweepTimeout = 5 * time.Minute

// ExpirySweeper drives the notifier on a fixed interval. Access gating
// does not depend on it running; lazy expiry in the access path keeps
// decisions correct even when the worker is down.
type ExpirySweeper struct {
	notifier *notifier.Service
	interval time.Duration
	logger   zerolog.Logger
}

func NewExpirySweeper(n *notifier.Service, interval time.Duration, logger zerolog.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &ExpirySweeper{
		notifier: n,
		interval: interval,
		logger:   logger,
	}
}

// Start sweeps once immediately, then on every tick until ctx is done.
func (w *ExpirySweeper) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("starting expiry sweeper")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpirySweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	if err := w.notifier.Run(sweepCtx, time.Now()); err != nil {
		w.logger.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	w.logger.Info().Msg("expiry sweep completed")
}
