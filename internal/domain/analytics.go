// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package domain

import "time"

// TrackHourlyAggregate accumulates per-track playback counters for one hour
// bucket. Updates are commutative (counter additions, max timestamps) so
// the telemetry worker needs no ordering guarantee between events.
type TrackHourlyAggregate struct {
	TrackID            string    `json:"trackId" dynamodbav:"trackId"`
	Bucket             time.Time `json:"bucket" dynamodbav:"bucket"` // truncated to the hour
	PlayStartCount     int64     `json:"playStartCount" dynamodbav:"playStartCount"`
	PlayCompleteCount  int64     `json:"playCompleteCount" dynamodbav:"playCompleteCount"`
	TotalSeconds       float64   `json:"totalSeconds" dynamodbav:"totalSeconds"`
	UniqueSessionCount int64     `json:"uniqueSessionCount" dynamodbav:"uniqueSessionCount"`
	ExpiresAt          int64     `json:"-" dynamodbav:"expiresAt"` // DynamoDB TTL attribute, unix seconds
}

// TrackDailyAggregate is the day-bucket rollup of TrackHourlyAggregate.
type TrackDailyAggregate struct {
	TrackID            string    `json:"trackId" dynamodbav:"trackId"`
	Bucket             time.Time `json:"bucket" dynamodbav:"bucket"` // truncated to the day
	PlayStartCount     int64     `json:"playStartCount" dynamodbav:"playStartCount"`
	PlayCompleteCount  int64     `json:"playCompleteCount" dynamodbav:"playCompleteCount"`
	TotalSeconds       float64   `json:"totalSeconds" dynamodbav:"totalSeconds"`
	UniqueSessionCount int64     `json:"uniqueSessionCount" dynamodbav:"uniqueSessionCount"`
	ExpiresAt          int64     `json:"-" dynamodbav:"expiresAt"`
}

// UserActivityAggregate is the per-user, per-day rollup of listening activity.
type UserActivityAggregate struct {
	UserID            string    `json:"userId" dynamodbav:"userId"`
	Day               time.Time `json:"day" dynamodbav:"day"` // truncated to the day
	UniqueTracksPlayed int64    `json:"uniqueTracksPlayed" dynamodbav:"uniqueTracksPlayed"`
	TotalPlays        int64     `json:"totalPlays" dynamodbav:"totalPlays"`
	TotalSeconds      float64   `json:"totalSeconds" dynamodbav:"totalSeconds"`
	LastActivityAt    time.Time `json:"lastActivityAt" dynamodbav:"lastActivityAt"`
	ExpiresAt         int64     `json:"-" dynamodbav:"expiresAt"`
}

// PlaybackEventType enumerates the telemetry events the playback client reports.
type PlaybackEventType string

const (
	PlaybackEventPlayStart    PlaybackEventType = "play_start"
	PlaybackEventPlayProgress PlaybackEventType = "play_progress"
	PlaybackEventPlayComplete PlaybackEventType = "play_complete"
	PlaybackEventPlayStop     PlaybackEventType = "play_stop"
	PlaybackEventSeek         PlaybackEventType = "seek"
)

// PlaybackEvent is the payload of a telemetry bus message, one per client
// playback action. DeviceID is pre-hashed by the client before transmission.
type PlaybackEvent struct {
	EventType             PlaybackEventType `json:"eventType"`
	TrackID               string            `json:"trackId"`
	UserID                string            `json:"userId"`
	ClientTimestamp       time.Time         `json:"clientTimestamp"`
	ServerTimestamp       time.Time         `json:"serverTimestamp"`
	PositionSeconds       *float64          `json:"positionSeconds,omitempty"`
	DurationPlayedSeconds *float64          `json:"durationPlayedSeconds,omitempty"`
	SessionID             string            `json:"sessionId,omitempty"`
	DeviceID              string            `json:"deviceId,omitempty"`
	ClientVersion         string            `json:"clientVersion,omitempty"`
	CorrelationID         string            `json:"correlationId"`
}
