// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/docstore"
	"github.com/novatune/backend/internal/domain"
	"github.com/novatune/backend/internal/logging"
)

// Objects is the subset of objectstore.Client the lifecycle sweep depends on.
type Objects interface {
	Delete(ctx context.Context, objectKey string) error
}

// Playlists is the subset of playlist.Core the cascade-remove step depends on.
type Playlists interface {
	CascadeRemove(ctx context.Context, trackID, userID string, trackDuration float64) error
}

// Core runs the permanent-deletion sweep over tracks whose soft-delete
// grace window has elapsed.
type Core struct {
	db        *docstore.Client
	objects   Objects
	playlists Playlists
	cfg       config.LifecycleConfig
}

// NewCore wires a Core from its dependencies.
func NewCore(db *docstore.Client, objects Objects, playlists Playlists, cfg config.LifecycleConfig) *Core {
	return &Core{db: db, objects: objects, playlists: playlists, cfg: cfg}
}

func (c *Core) batchSize() int {
	if c.cfg.BatchSize <= 0 {
		return 100
	}
	return c.cfg.BatchSize
}

func (c *Core) maxConcurrency() int {
	if c.cfg.MaxConcurrency <= 0 {
		return 8
	}
	return c.cfg.MaxConcurrency
}

// Backlog returns the number of tracks whose grace window has elapsed and
// that are still waiting to be permanently deleted, for the health check.
func (c *Core) Backlog(ctx context.Context) (int, error) {
	due, err := c.db.Tracks().ListScheduledForDeletion(ctx, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return len(due), nil
}

// Degraded reports whether the current backlog exceeds the configured
// threshold.
func (c *Core) Degraded(ctx context.Context) (bool, error) {
	n, err := c.Backlog(ctx)
	if err != nil {
		return false, err
	}
	return n > c.cfg.DegradedBacklogThreshold, nil
}

// Sweep permanently deletes every track whose grace window has elapsed and
// returns how many were fully removed. A single worker polls, so no
// cross-process locking is needed; within that one call, candidates are
// processed concurrently up to MaxConcurrency, in chunks of BatchSize.
func (c *Core) Sweep(ctx context.Context) (int, error) {
	due, err := c.db.Tracks().ListScheduledForDeletion(ctx, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	batch := c.batchSize()
	sem := make(chan struct{}, c.maxConcurrency())
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		removed int
	)

	for start := 0; start < len(due); start += batch {
		end := start + batch
		if end > len(due) {
			end = len(due)
		}
		for _, track := range due[start:end] {
			track := track
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				if c.removeTrack(ctx, track) {
					mu.Lock()
					removed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait() // one batch finishes before the next starts
	}

	return removed, nil
}

// removeTrack runs the best-effort object-then-playlist-then-document
// deletion sequence for one track. Steps 1-3 are logged-and-continued on
// failure: a left-behind object is harmless garbage a future sweep or
// manual cleanup can remove, and a dangling playlist entry is tolerated
// elsewhere as a weak reference. Step 4 always runs last, and runs even
// when steps 1-3 failed.
func (c *Core) removeTrack(ctx context.Context, track *domain.Track) bool {
	if track.ObjectKey != "" {
		if err := c.objects.Delete(ctx, track.ObjectKey); err != nil {
			logging.Warn().Err(err).Str("trackId", track.ID).Str("objectKey", track.ObjectKey).
				Msg("lifecycle: best-effort audio object delete failed")
		}
	}
	if track.WaveformObjectKey != "" {
		if err := c.objects.Delete(ctx, track.WaveformObjectKey); err != nil {
			logging.Warn().Err(err).Str("trackId", track.ID).Str("objectKey", track.WaveformObjectKey).
				Msg("lifecycle: best-effort waveform object delete failed")
		}
	}
	if err := c.playlists.CascadeRemove(ctx, track.ID, track.UserID, track.DurationSeconds); err != nil {
		logging.Warn().Err(err).Str("trackId", track.ID).Msg("lifecycle: best-effort playlist cascade remove failed")
	}

	if err := c.db.Tracks().Delete(ctx, track.ID); err != nil {
		logging.Error().Err(err).Str("trackId", track.ID).Msg("lifecycle: permanent track document delete failed, will retry next sweep")
		return false
	}
	return true
}
