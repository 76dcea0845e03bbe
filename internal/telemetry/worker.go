// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package telemetry

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/novatune/backend/internal/bus"
	"github.com/novatune/backend/internal/logging"
)

// Worker runs cfg.ConsumerConcurrency parallel consume loops against the
// telemetry topic, all feeding the same Core, plus a ticker that flushes
// buffered aggregates every cfg.FlushInterval. Implements suture.Service.
type Worker struct {
	sub   *bus.Subscriber
	core  *Core
	topic string
	flush time.Duration
}

// NewWorker wires a Worker to consume topics.Telemetry.
func NewWorker(sub *bus.Subscriber, core *Core, topics bus.Topics) *Worker {
	flush := core.cfg.FlushInterval
	if flush <= 0 {
		flush = 30 * time.Second
	}
	return &Worker{sub: sub, core: core, topic: topics.Telemetry, flush: flush}
}

func (w *Worker) Serve(ctx context.Context) error {
	logging.Info().Str("topic", w.topic).Int("concurrency", w.consumerCount()).Msg("telemetry: worker starting")

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.consumerCount(); i++ {
		group.Go(func() error {
			err := w.sub.Run(groupCtx, w.topic, w.core.Handle)
			if err != nil && groupCtx.Err() != nil {
				return nil
			}
			return err
		})
	}
	group.Go(func() error {
		w.runFlushLoop(groupCtx)
		return nil
	})

	err := group.Wait()

	// A final best-effort flush so a clean shutdown doesn't lose whatever
	// was buffered since the last tick.
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if flushErr := w.core.Flush(flushCtx); flushErr != nil {
		logging.Warn().Err(flushErr).Msg("telemetry: final flush on shutdown incomplete")
	}

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("telemetry: consume loop stopped: %w", err)
	}
	return nil
}

func (w *Worker) consumerCount() int {
	if w.core.cfg.ConsumerConcurrency <= 0 {
		return 1
	}
	return w.core.cfg.ConsumerConcurrency
}

func (w *Worker) runFlushLoop(ctx context.Context) {
	ticker := time.NewTicker(w.flush)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.core.Flush(ctx); err != nil {
				logging.Warn().Err(err).Msg("telemetry: periodic flush incomplete")
			}
		}
	}
}
