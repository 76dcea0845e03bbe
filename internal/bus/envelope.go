// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package bus

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SchemaVersion is the current envelope schema version.
// Increment when making breaking changes to Envelope or a message type's payload shape.
const SchemaVersion = 1

// Message type tags carried in Envelope.Type. These name the canonical,
// single-schema form for each event — per the resolved schema questions,
// AudioUploaded uses ULID-string track/user ids with a checksum field, and
// TrackDeleted has exactly one canonical shape (older emitted forms are not
// round-tripped).
const (
	TypeAudioUploaded = "AudioUploaded"
	TypeTrackDeleted  = "TrackDeleted"
	TypeObjectCreated = "ObjectCreated"
	TypePlaybackEvent = "PlaybackEvent"
)

// Envelope is the canonical outbox/bus message wrapper. It is the payload
// published by the outbox relay and consumed by the ingestor, processor,
// telemetry and lifecycle workers, and is also the schema of a DLQ entry's
// original message.
type Envelope struct {
	SchemaVersion int             `json:"schemaVersion"`
	MessageID     string          `json:"messageId"`
	Type          string          `json:"type"`
	Topic         string          `json:"topic"`
	Key           string          `json:"key"`
	CorrelationID string          `json:"correlationId"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope creates an envelope with a fresh message id, current
// timestamp, and the current schema version.
func NewEnvelope(msgType, topic, key, correlationID string, payload json.RawMessage) *Envelope {
	return &Envelope{
		SchemaVersion: SchemaVersion,
		MessageID:     uuid.New().String(),
		Type:          msgType,
		Topic:         topic,
		Key:           key,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	}
}

// Validate checks required envelope fields.
func (e *Envelope) Validate() error {
	if e.MessageID == "" {
		return &ValidationError{Field: "messageId", Message: "required"}
	}
	if e.Type == "" {
		return &ValidationError{Field: "type", Message: "required"}
	}
	if e.Topic == "" {
		return &ValidationError{Field: "topic", Message: "required"}
	}
	return nil
}

// AudioUploadedPayload is the payload of a TypeAudioUploaded message,
// published by the upload ingestor once an uploaded object has been
// recorded as a Track. Track and user ids are ULID strings; Checksum is
// computed by the ingestor from the uploaded bytes so the processor can be
// idempotent on (trackId, checksum) rather than relying solely on message
// redelivery semantics.
type AudioUploadedPayload struct {
	TrackID       string    `json:"trackId"`
	UserID        string    `json:"userId"`
	ObjectKey     string    `json:"objectKey"`
	MimeType      string    `json:"mimeType"`
	FileSize      int64     `json:"fileSize"`
	Checksum      string    `json:"checksum"`
	CorrelationID string    `json:"correlationId"`
	Timestamp     time.Time `json:"timestamp"`
}

// TrackDeletedPayload is the payload of a TypeTrackDeleted message,
// published when a Track is soft-deleted. This is the single canonical
// shape; consumers should not expect or tolerate the legacy alternate
// schema version that the original implementation also produced.
type TrackDeletedPayload struct {
	TrackID             string    `json:"trackId"`
	UserID              string    `json:"userId"`
	ObjectKey           string    `json:"objectKey"`
	WaveformObjectKey   string    `json:"waveformObjectKey,omitempty"`
	FileSize            int64     `json:"fileSize"`
	DeletedAt           time.Time `json:"deletedAt"`
	ScheduledDeletionAt time.Time `json:"scheduledDeletionAt"`
	CorrelationID       string    `json:"correlationId"`
}

// ObjectCreatedPayload is the payload of a TypeObjectCreated message, the
// object-storage notification the upload ingestor consumes. ObjectKey is
// expected to match "audio/{userId}/{trackId}/{nonce}"; keys that don't are
// orphans the ingestor acknowledges without action.
type ObjectCreatedPayload struct {
	Bucket      string    `json:"bucket"`
	ObjectKey   string    `json:"objectKey"`
	SizeBytes   int64     `json:"sizeBytes"`
	ContentType string    `json:"contentType"`
	EventTime   time.Time `json:"eventTime"`
}

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// DLQEnvelope is the schema of a message forwarded to a `{prefix}-dlq`
// topic after a consumer exhausts its retry policy.
type DLQEnvelope struct {
	OriginalTopic string    `json:"originalTopic"`
	OriginalKey   string    `json:"originalKey"`
	PayloadJSON   string    `json:"payloadJson"`
	ErrorMessage  string    `json:"errorMessage"`
	StackTrace    string    `json:"stackTrace,omitempty"`
	RetryCount    int       `json:"retryCount"`
	FailedAt      time.Time `json:"failedAt"`
}
