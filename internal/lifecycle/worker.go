// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package lifecycle

import (
	"context"
	"time"

	"github.com/novatune/backend/internal/logging"
)

// Worker runs Core.Sweep on a fixed interval. Implements suture.Service.
type Worker struct {
	core     *Core
	interval time.Duration
}

// NewWorker wires a Worker that sweeps every interval (or every 10 minutes
// if interval is non-positive).
func NewWorker(core *Core, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Worker{core: core, interval: interval}
}

func (w *Worker) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", w.interval).Msg("lifecycle: worker starting")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *Worker) sweepOnce(ctx context.Context) {
	n, err := w.core.Sweep(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("lifecycle: sweep failed")
		return
	}
	if n > 0 {
		logging.Info().Int("deleted", n).Msg("lifecycle: swept permanently deleted tracks")
	}
}
