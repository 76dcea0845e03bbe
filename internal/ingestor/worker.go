// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package ingestor

import (
	"context"
	"fmt"

	"github.com/novatune/backend/internal/bus"
	"github.com/novatune/backend/internal/logging"
)

// Worker subscribes to the object-created topic and feeds every envelope to
// Core.Handle. It implements suture.Service (Serve(ctx) error) so the
// supervisor tree restarts it if the subscription loop ever returns an
// error other than context cancellation.
type Worker struct {
	sub   *bus.Subscriber
	core  *Core
	topic string
}

func NewWorker(sub *bus.Subscriber, core *Core, topics bus.Topics) *Worker {
	return &Worker{sub: sub, core: core, topic: topics.ObjectEvents}
}

// Serve runs the consume loop until ctx is canceled.
func (w *Worker) Serve(ctx context.Context) error {
	logging.Info().Str("topic", w.topic).Msg("ingestor: worker starting")
	err := w.sub.Run(ctx, w.topic, w.core.Handle)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ingestor: consume loop stopped: %w", err)
	}
	return nil
}
