// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/novatune/backend/internal/auth"
	"github.com/novatune/backend/internal/bus"
	"github.com/novatune/backend/internal/domain"
	"github.com/novatune/backend/internal/logging"
)

// TelemetryHandlers accepts playback events over HTTP and publishes them to
// the telemetry topic; the telemetry worker process consumes and aggregates
// them. This handler never touches the document store directly.
type TelemetryHandlers struct {
	publisher *bus.Publisher
	topics    bus.Topics
}

// NewTelemetryHandlers wires telemetry handlers against publisher and topics.
func NewTelemetryHandlers(publisher *bus.Publisher, topics bus.Topics) *TelemetryHandlers {
	return &TelemetryHandlers{publisher: publisher, topics: topics}
}

type playbackEventRequest struct {
	EventType             domain.PlaybackEventType `json:"eventType"`
	TrackID               string                   `json:"trackId"`
	ClientTimestamp       time.Time                `json:"clientTimestamp"`
	PositionSeconds       *float64                 `json:"positionSeconds"`
	DurationPlayedSeconds *float64                 `json:"durationPlayedSeconds"`
	SessionID             string                   `json:"sessionId"`
	DeviceID              string                   `json:"deviceId"`
	ClientVersion         string                   `json:"clientVersion"`
}

// Record accepts a single playback event and publishes it for asynchronous
// aggregation.
func (h *TelemetryHandlers) Record(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	var req playbackEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		NewResponseWriter(w, r).BadRequest("malformed request body")
		return
	}
	if req.TrackID == "" {
		NewResponseWriter(w, r).BadRequest("trackId is required")
		return
	}

	correlationID := logging.CorrelationIDFromContext(r.Context())
	event := domain.PlaybackEvent{
		EventType:             req.EventType,
		TrackID:               req.TrackID,
		UserID:                subject.UserID,
		ClientTimestamp:       req.ClientTimestamp,
		ServerTimestamp:       time.Now().UTC(),
		PositionSeconds:       req.PositionSeconds,
		DurationPlayedSeconds: req.DurationPlayedSeconds,
		SessionID:             req.SessionID,
		DeviceID:              req.DeviceID,
		ClientVersion:         req.ClientVersion,
		CorrelationID:         correlationID,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		NewResponseWriter(w, r).InternalError("failed to encode playback event")
		return
	}

	env := bus.NewEnvelope(bus.TypePlaybackEvent, h.topics.Telemetry, req.TrackID, correlationID, payload)
	if err := h.publisher.PublishEnvelope(r.Context(), env); err != nil {
		logging.CtxErr(r.Context(), err).Msg("telemetry: publish playback event")
		NewResponseWriter(w, r).ServiceUnavailable("telemetry ingestion temporarily unavailable")
		return
	}

	NewResponseWriter(w, r).NoContent()
}
