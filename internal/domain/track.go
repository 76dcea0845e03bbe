// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package domain

import "time"

// TrackStatus is the processing lifecycle state of a track.
type TrackStatus string

const (
	TrackStatusProcessing TrackStatus = "processing"
	TrackStatusReady      TrackStatus = "ready"
	TrackStatusFailed     TrackStatus = "failed"
	TrackStatusDeleted    TrackStatus = "deleted"
)

// ModerationStatus is independent of TrackStatus; a Ready track may still be
// under review or removed by an admin.
type ModerationStatus string

const (
	ModerationNone        ModerationStatus = "none"
	ModerationUnderReview ModerationStatus = "under_review"
	ModerationDisabled    ModerationStatus = "disabled"
	ModerationRemoved     ModerationStatus = "removed"
)

// FailureReason enumerates the terminal validation outcomes the audio
// processor worker may record against a Track.
type FailureReason string

const (
	FailureDurationExceeded  FailureReason = "duration_exceeded"
	FailureInvalidDuration   FailureReason = "invalid_duration"
	FailureUnsupportedCodec  FailureReason = "unsupported_codec"
	FailureCorruptedFile     FailureReason = "corrupted_file"
	FailureInvalidSampleRate FailureReason = "invalid_sample_rate"
	FailureInvalidChannels   FailureReason = "invalid_channels"
	FailureFfprobeTimeout    FailureReason = "ffprobe_timeout"
	FailureFfmpegTimeout     FailureReason = "ffmpeg_timeout"
	FailureStorageError      FailureReason = "storage_error"
	FailureProcessingTimeout FailureReason = "processing_timeout"
	FailureUnknownError      FailureReason = "unknown_error"
)

// TrackMetadata holds the ffprobe-extracted technical metadata for a track.
type TrackMetadata struct {
	SampleRate   int               `json:"sampleRate" dynamodbav:"sampleRate"`
	Channels     int               `json:"channels" dynamodbav:"channels"`
	BitrateKbps  int               `json:"bitrateKbps,omitempty" dynamodbav:"bitrateKbps,omitempty"`
	CodecShort   string            `json:"codecShort" dynamodbav:"codecShort"`
	CodecLong    string            `json:"codecLong,omitempty" dynamodbav:"codecLong,omitempty"`
	BitDepth     int               `json:"bitDepth,omitempty" dynamodbav:"bitDepth,omitempty"`
	Tags         map[string]string `json:"tags,omitempty" dynamodbav:"tags,omitempty"`
}

// Track is the central media aggregate. Streamability requires
// status=Ready and a non-suppressing moderation status; see
// internal/track.Core.IssueStreamUrl.
type Track struct {
	ID                 string           `json:"id" dynamodbav:"id"`
	UserID             string           `json:"userId" dynamodbav:"userId"`
	Title              string           `json:"title" dynamodbav:"title"`
	Artist             string           `json:"artist,omitempty" dynamodbav:"artist,omitempty"`
	DurationSeconds    float64          `json:"durationSeconds" dynamodbav:"durationSeconds"`
	ObjectKey          string           `json:"objectKey" dynamodbav:"objectKey"`
	FileSizeBytes      int64            `json:"fileSizeBytes" dynamodbav:"fileSizeBytes"`
	MimeType           string           `json:"mimeType" dynamodbav:"mimeType"`
	Checksum           string           `json:"checksum" dynamodbav:"checksum"` // SHA-256 hex
	Metadata           *TrackMetadata   `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
	WaveformObjectKey  string           `json:"waveformObjectKey,omitempty" dynamodbav:"waveformObjectKey,omitempty"`
	FailureReason      FailureReason    `json:"failureReason,omitempty" dynamodbav:"failureReason,omitempty"`
	Status             TrackStatus      `json:"status" dynamodbav:"status"`
	PreDeleteStatus    TrackStatus      `json:"-" dynamodbav:"preDeleteStatus,omitempty"` // restored on Restore
	ModerationStatus   ModerationStatus `json:"moderationStatus" dynamodbav:"moderationStatus"`
	ModerationReason   string           `json:"moderationReason,omitempty" dynamodbav:"moderationReason,omitempty"`
	CreatedAt          time.Time        `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt" dynamodbav:"updatedAt"`
	ProcessedAt        *time.Time       `json:"processedAt,omitempty" dynamodbav:"processedAt,omitempty"`
	DeletedAt          *time.Time       `json:"deletedAt,omitempty" dynamodbav:"deletedAt,omitempty"`
	ScheduledDeletionAt *time.Time      `json:"scheduledDeletionAt,omitempty" dynamodbav:"scheduledDeletionAt,omitempty"`
	Version            int              `json:"-" dynamodbav:"version"`
}

// Streamable reports whether IssueStreamUrl may serve this track.
func (t *Track) Streamable() bool {
	if t.Status != TrackStatusReady {
		return false
	}
	return t.ModerationStatus == ModerationNone || t.ModerationStatus == ModerationUnderReview
}

// Deleted reports whether the track is in the soft-delete grace window or past it.
func (t *Track) Deleted() bool {
	return t.Status == TrackStatusDeleted
}

// RestorationExpired reports whether Restore must be rejected because the
// grace window has elapsed.
func (t *Track) RestorationExpired(now time.Time) bool {
	return t.ScheduledDeletionAt == nil || !now.Before(*t.ScheduledDeletionAt)
}
