// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/novatune/backend/internal/bus"
	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/docstore"
	"github.com/novatune/backend/internal/domain"
	"github.com/novatune/backend/internal/logging"
)

type trackBucketKey struct {
	trackID string
	bucket  time.Time
}

type trackDelta struct {
	playStarts    int64
	playCompletes int64
	seconds       float64
	sessions      map[string]struct{}
}

func (d *trackDelta) addSession(sessionID string) {
	if sessionID == "" {
		return
	}
	if d.sessions == nil {
		d.sessions = make(map[string]struct{})
	}
	if _, seen := d.sessions[sessionID]; !seen {
		d.sessions[sessionID] = struct{}{}
	}
}

type userBucketKey struct {
	userID string
	day    time.Time
}

type userDelta struct {
	uniqueTracks   map[string]struct{}
	totalPlays     int64
	seconds        float64
	lastActivityAt time.Time
}

// Core buffers playback-event deltas in memory and periodically rolls them
// into internal/docstore's hourly, daily, and per-user aggregates. Events
// are commutative (spec: "ordering is not required between events"), so
// buffering and batching the writes loses nothing a crash wouldn't also
// lose for a single unbuffered write.
type Core struct {
	db  *docstore.Client
	cfg config.TelemetryConfig

	mu          sync.Mutex
	trackHourly map[trackBucketKey]*trackDelta
	trackDaily  map[trackBucketKey]*trackDelta
	userDaily   map[userBucketKey]*userDelta
}

// NewCore wires a Core from its dependencies.
func NewCore(db *docstore.Client, cfg config.TelemetryConfig) *Core {
	return &Core{
		db:          db,
		cfg:         cfg,
		trackHourly: make(map[trackBucketKey]*trackDelta),
		trackDaily:  make(map[trackBucketKey]*trackDelta),
		userDaily:   make(map[userBucketKey]*userDelta),
	}
}

// Handle is the bus.EnvelopeHandlerFunc the worker's consume loop invokes
// for every playback-event message.
func (c *Core) Handle(ctx context.Context, env *bus.Envelope) error {
	if env.Type != bus.TypePlaybackEvent {
		logging.Debug().Str("type", env.Type).Msg("telemetry: ignoring non playback-event envelope")
		return nil
	}
	var event domain.PlaybackEvent
	if err := json.Unmarshal(env.Payload, &event); err != nil {
		return fmt.Errorf("telemetry: decode playback event payload: %w", err)
	}
	c.Record(&event)
	return nil
}

// Record buffers one playback event's contribution to the hourly, daily,
// and per-user-activity aggregates. It never touches the document store
// directly; Flush does.
func (c *Core) Record(event *domain.PlaybackEvent) {
	ts := event.ServerTimestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	hour := ts.UTC().Truncate(time.Hour)
	day := ts.UTC().Truncate(24 * time.Hour)

	var seconds float64
	if event.DurationPlayedSeconds != nil {
		seconds = *event.DurationPlayedSeconds
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	hourlyKey := trackBucketKey{trackID: event.TrackID, bucket: hour}
	dailyKey := trackBucketKey{trackID: event.TrackID, bucket: day}
	th := c.trackHourly[hourlyKey]
	if th == nil {
		th = &trackDelta{}
		c.trackHourly[hourlyKey] = th
	}
	td := c.trackDaily[dailyKey]
	if td == nil {
		td = &trackDelta{}
		c.trackDaily[dailyKey] = td
	}

	switch event.EventType {
	case domain.PlaybackEventPlayStart:
		th.playStarts++
		td.playStarts++
	case domain.PlaybackEventPlayComplete:
		th.playCompletes++
		td.playCompletes++
	}
	th.seconds += seconds
	td.seconds += seconds
	th.addSession(event.SessionID)
	td.addSession(event.SessionID)

	userKey := userBucketKey{userID: event.UserID, day: day}
	ud := c.userDaily[userKey]
	if ud == nil {
		ud = &userDelta{uniqueTracks: make(map[string]struct{})}
		c.userDaily[userKey] = ud
	}
	if event.EventType == domain.PlaybackEventPlayStart {
		ud.totalPlays++
	}
	ud.seconds += seconds
	if event.TrackID != "" {
		ud.uniqueTracks[event.TrackID] = struct{}{}
	}
	if ts.After(ud.lastActivityAt) {
		ud.lastActivityAt = ts
	}
}

// Flush writes every buffered delta to the document store and clears it. A
// bucket whose write fails is logged and left in the buffer so the next
// Flush retries it, rather than silently dropping the increment.
func (c *Core) Flush(ctx context.Context) error {
	c.mu.Lock()
	trackHourly := c.trackHourly
	trackDaily := c.trackDaily
	userDaily := c.userDaily
	c.trackHourly = make(map[trackBucketKey]*trackDelta)
	c.trackDaily = make(map[trackBucketKey]*trackDelta)
	c.userDaily = make(map[userBucketKey]*userDelta)
	c.mu.Unlock()

	var failed int
	agg := c.db.Aggregates()

	for key, d := range trackHourly {
		if err := agg.IncrementTrackHourly(ctx, key.trackID, key.bucket, d.playStarts, d.playCompletes, d.seconds, int64(len(d.sessions))); err != nil {
			logging.Error().Err(err).Str("trackId", key.trackID).Msg("telemetry: flush hourly aggregate failed")
			c.reclaimTrack(&c.trackHourly, key, d)
			failed++
		}
	}
	for key, d := range trackDaily {
		if err := agg.IncrementTrackDaily(ctx, key.trackID, key.bucket, d.playStarts, d.playCompletes, d.seconds, int64(len(d.sessions))); err != nil {
			logging.Error().Err(err).Str("trackId", key.trackID).Msg("telemetry: flush daily aggregate failed")
			c.reclaimTrack(&c.trackDaily, key, d)
			failed++
		}
	}
	for key, d := range userDaily {
		if err := agg.IncrementUserActivity(ctx, key.userID, key.day, int64(len(d.uniqueTracks)), d.totalPlays, d.seconds, d.lastActivityAt); err != nil {
			logging.Error().Err(err).Str("userId", key.userID).Msg("telemetry: flush user activity aggregate failed")
			c.reclaimUser(key, d)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("telemetry: %d aggregate buckets failed to flush and were retained for retry", failed)
	}
	return nil
}

func (c *Core) reclaimTrack(buf *map[trackBucketKey]*trackDelta, key trackBucketKey, d *trackDelta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := (*buf)[key]; ok {
		existing.playStarts += d.playStarts
		existing.playCompletes += d.playCompletes
		existing.seconds += d.seconds
		for s := range d.sessions {
			existing.addSession(s)
		}
		return
	}
	(*buf)[key] = d
}

func (c *Core) reclaimUser(key userBucketKey, d *userDelta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.userDaily[key]; ok {
		existing.totalPlays += d.totalPlays
		existing.seconds += d.seconds
		for t := range d.uniqueTracks {
			existing.uniqueTracks[t] = struct{}{}
		}
		if d.lastActivityAt.After(existing.lastActivityAt) {
			existing.lastActivityAt = d.lastActivityAt
		}
		return
	}
	c.userDaily[key] = d
}
