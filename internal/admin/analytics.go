// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package admin

import (
	"context"
	"sort"
	"time"

	"github.com/novatune/backend/internal/domain"
)

// Overview is the top-line counters for the admin analytics landing view.
type Overview struct {
	TotalUsers          int     `json:"totalUsers"`
	ActiveUsers         int     `json:"activeUsers"`
	TotalTracks         int     `json:"totalTracks"`
	ReadyTracks         int     `json:"readyTracks"`
	PlayStartsToday     int64   `json:"playStartsToday"`
	PlayCompletesToday  int64   `json:"playCompletesToday"`
	ListenSecondsToday  float64 `json:"listenSecondsToday"`
}

// Overview computes the counters that back the admin analytics landing
// page: user and track counts from a full scan, and today's playback
// totals from the daily aggregate rollups.
func (c *Core) Overview(ctx context.Context) (*Overview, error) {
	users, err := c.db.Users().ListAll(ctx)
	if err != nil {
		return nil, err
	}
	activeUsers := 0
	for _, u := range users {
		if u.Status == domain.UserStatusActive {
			activeUsers++
		}
	}

	totalTracks, readyTracks := 0, 0
	err = c.db.Tracks().ListAllForAdmin(ctx, func(t *domain.Track) bool {
		totalTracks++
		if t.Status == domain.TrackStatusReady {
			readyTracks++
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dayStart := now.Truncate(24 * time.Hour)
	daily, err := c.db.Aggregates().ListTrackDailyInRange(ctx, dayStart, now)
	if err != nil {
		return nil, err
	}
	overview := &Overview{
		TotalUsers:  len(users),
		ActiveUsers: activeUsers,
		TotalTracks: totalTracks,
		ReadyTracks: readyTracks,
	}
	for _, d := range daily {
		overview.PlayStartsToday += d.PlayStartCount
		overview.PlayCompletesToday += d.PlayCompleteCount
		overview.ListenSecondsToday += d.TotalSeconds
	}
	return overview, nil
}

// TrackStats is one row of the top-tracks report.
type TrackStats struct {
	TrackID           string  `json:"trackId"`
	Title             string  `json:"title"`
	Artist            string  `json:"artist,omitempty"`
	PlayStartCount    int64   `json:"playStartCount"`
	PlayCompleteCount int64   `json:"playCompleteCount"`
	TotalSeconds      float64 `json:"totalSeconds"`
}

// TopTracks sums the daily aggregate rollups over [from, to] per track,
// ranks by play starts, and attaches title/artist for the returned rows
// only, to avoid an unbounded fan-out of track lookups.
func (c *Core) TopTracks(ctx context.Context, from, to time.Time, limit int) ([]TrackStats, error) {
	daily, err := c.db.Aggregates().ListTrackDailyInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byTrack := make(map[string]*TrackStats)
	order := make([]string, 0)
	for _, d := range daily {
		s, ok := byTrack[d.TrackID]
		if !ok {
			s = &TrackStats{TrackID: d.TrackID}
			byTrack[d.TrackID] = s
			order = append(order, d.TrackID)
		}
		s.PlayStartCount += d.PlayStartCount
		s.PlayCompleteCount += d.PlayCompleteCount
		s.TotalSeconds += d.TotalSeconds
	}

	sort.SliceStable(order, func(i, j int) bool {
		return byTrack[order[i]].PlayStartCount > byTrack[order[j]].PlayStartCount
	})
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}

	out := make([]TrackStats, 0, len(order))
	for _, trackID := range order {
		s := *byTrack[trackID]
		if t, err := c.db.Tracks().Get(ctx, trackID); err == nil {
			s.Title = t.Title
			s.Artist = t.Artist
		}
		out = append(out, s)
	}
	return out, nil
}

// UserActivityStats is one row of the active-users report.
type UserActivityStats struct {
	UserID             string  `json:"userId"`
	Email              string  `json:"email,omitempty"`
	DisplayName        string  `json:"displayName,omitempty"`
	UniqueTracksPlayed int64   `json:"uniqueTracksPlayed"`
	TotalPlays         int64   `json:"totalPlays"`
	TotalSeconds       float64 `json:"totalSeconds"`
}

// ActiveUsers sums the daily user-activity rollups over [from, to] per
// user, ranks by total plays, and attaches identity for the returned rows
// only.
func (c *Core) ActiveUsers(ctx context.Context, from, to time.Time, limit int) ([]UserActivityStats, error) {
	daily, err := c.db.Aggregates().ListUserActivityInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]*UserActivityStats)
	order := make([]string, 0)
	for _, d := range daily {
		s, ok := byUser[d.UserID]
		if !ok {
			s = &UserActivityStats{UserID: d.UserID}
			byUser[d.UserID] = s
			order = append(order, d.UserID)
		}
		s.UniqueTracksPlayed += d.UniqueTracksPlayed
		s.TotalPlays += d.TotalPlays
		s.TotalSeconds += d.TotalSeconds
	}

	sort.SliceStable(order, func(i, j int) bool {
		return byUser[order[i]].TotalPlays > byUser[order[j]].TotalPlays
	})
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}

	out := make([]UserActivityStats, 0, len(order))
	for _, userID := range order {
		s := *byUser[userID]
		if u, err := c.db.Users().Get(ctx, userID); err == nil {
			s.Email = u.Email
			s.DisplayName = u.DisplayName
		}
		out = append(out, s)
	}
	return out, nil
}
