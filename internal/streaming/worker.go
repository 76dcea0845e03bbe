// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package streaming

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/novatune/backend/internal/bus"
	"github.com/novatune/backend/internal/logging"
)

// Worker consumes TrackDeleted notifications and invalidates the
// corresponding stream cache entry. Implements suture.Service.
type Worker struct {
	sub   *bus.Subscriber
	inv   *Invalidator
	topic string
}

// NewWorker wires a Worker to consume topics.TrackDeletions.
func NewWorker(sub *bus.Subscriber, inv *Invalidator, topics bus.Topics) *Worker {
	return &Worker{sub: sub, inv: inv, topic: topics.TrackDeletions}
}

// Handle is the bus.EnvelopeHandlerFunc the worker's consume loop invokes
// for every TrackDeleted message.
func (w *Worker) Handle(ctx context.Context, env *bus.Envelope) error {
	if env.Type != bus.TypeTrackDeleted {
		return nil
	}
	var payload bus.TrackDeletedPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("streaming: decode track-deleted payload: %w", err)
	}
	w.inv.InvalidateTrack(ctx, payload.UserID, payload.TrackID)
	logging.Debug().Str("trackId", payload.TrackID).Msg("streaming: invalidated stream cache after delete")
	return nil
}

func (w *Worker) Serve(ctx context.Context) error {
	logging.Info().Str("topic", w.topic).Msg("streaming: worker starting")
	err := w.sub.Run(ctx, w.topic, w.Handle)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("streaming: consume loop stopped: %w", err)
	}
	return nil
}
