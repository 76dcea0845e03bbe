// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package processor

import (
	"context"
	"fmt"

	"github.com/novatune/backend/internal/bus"
	"github.com/novatune/backend/internal/logging"
)

// Worker subscribes to the audio-events topic and feeds every envelope to
// Core.Handle. Implements suture.Service.
type Worker struct {
	sub   *bus.Subscriber
	core  *Core
	topic string
}

func NewWorker(sub *bus.Subscriber, core *Core, topics bus.Topics) *Worker {
	return &Worker{sub: sub, core: core, topic: topics.AudioEvents}
}

func (w *Worker) Serve(ctx context.Context) error {
	logging.Info().Str("topic", w.topic).Msg("processor: worker starting")
	err := w.sub.Run(ctx, w.topic, w.core.Handle)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("processor: consume loop stopped: %w", err)
	}
	return nil
}
