// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package playlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/novatune/backend/internal/apierr"
	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/docstore"
	"github.com/novatune/backend/internal/domain"
)

// Core implements the playlist core: CRUD, ordered track membership, and
// cascade removal on permanent track deletion.
type Core struct {
	db  *docstore.Client
	cfg config.PlaylistConfig
}

// NewCore wires a Core from its dependencies.
func NewCore(db *docstore.Client, cfg config.PlaylistConfig) *Core {
	return &Core{db: db, cfg: cfg}
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	Name        string
	Description string
	Visibility  domain.PlaylistVisibility
}

// Create persists a new, empty playlist, enforcing the per-user playlist
// count quota.
func (c *Core) Create(ctx context.Context, userID string, req CreateRequest) (*domain.Playlist, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apierr.Validation(apierr.CodeInvalidFileName, "playlist name is required")
	}
	if c.cfg.MaxPlaylistsPerUser > 0 {
		existing, err := c.db.Playlists().ListByUser(ctx, userID, int32(c.cfg.MaxPlaylistsPerUser)+1)
		if err != nil {
			return nil, fmt.Errorf("playlist: count existing: %w", err)
		}
		if len(existing) >= c.cfg.MaxPlaylistsPerUser {
			return nil, apierr.Conflict(apierr.CodeQuotaExceeded, "playlist count limit reached")
		}
	}
	visibility := req.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPrivate
	}
	now := time.Now().UTC()
	p := &domain.Playlist{
		ID:          domain.NewID(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Visibility:  visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.db.Playlists().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("playlist: create: %w", err)
	}
	return p, nil
}

func (c *Core) loadOwned(ctx context.Context, playlistID, callerID string, isAdmin bool) (*domain.Playlist, error) {
	p, err := c.db.Playlists().Get(ctx, playlistID)
	if err != nil {
		if err == docstore.ErrNotFound {
			return nil, apierr.NotFound(apierr.CodePlaylistNotFound, "playlist not found")
		}
		return nil, fmt.Errorf("playlist: load %s: %w", playlistID, err)
	}
	if !isAdmin && p.UserID != callerID {
		return nil, apierr.AccessDenied("playlist does not belong to the caller")
	}
	return p, nil
}

// Get returns a playlist, enforcing ownership (or admin access).
func (c *Core) Get(ctx context.Context, playlistID, callerID string, isAdmin bool) (*domain.Playlist, error) {
	return c.loadOwned(ctx, playlistID, callerID, isAdmin)
}

// ListResult is the output of List.
type ListResult struct {
	Items []*domain.Playlist
}

// List returns a user's playlists, optionally filtered by a search against
// playlist name.
func (c *Core) List(ctx context.Context, userID, search string, limit int32) (*ListResult, error) {
	if strings.TrimSpace(search) != "" {
		hits, err := c.db.SearchPlaylists(ctx, userID, search, int(limit))
		if err != nil {
			return nil, fmt.Errorf("playlist: search: %w", err)
		}
		return &ListResult{Items: hits}, nil
	}
	items, err := c.db.Playlists().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("playlist: list by user: %w", err)
	}
	return &ListResult{Items: items}, nil
}

// UpdateRequest carries the optional merge fields for Update.
type UpdateRequest struct {
	Name        *string
	Description *string
	Visibility  *domain.PlaylistVisibility
}

// Update merges the provided fields under optimistic concurrency.
func (c *Core) Update(ctx context.Context, playlistID, callerID string, isAdmin bool, req UpdateRequest) (*domain.Playlist, error) {
	p, err := c.loadOwned(ctx, playlistID, callerID, isAdmin)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, apierr.Validation(apierr.CodeInvalidFileName, "playlist name cannot be empty")
		}
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Visibility != nil {
		p.Visibility = *req.Visibility
	}
	p.UpdatedAt = time.Now().UTC()
	if err := c.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a playlist outright; playlists have no grace window.
func (c *Core) Delete(ctx context.Context, playlistID, callerID string, isAdmin bool) error {
	p, err := c.loadOwned(ctx, playlistID, callerID, isAdmin)
	if err != nil {
		return err
	}
	if err := c.db.Playlists().Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("playlist: delete %s: %w", p.ID, err)
	}
	return nil
}

// AddTracks validates and inserts trackIDs into a playlist, appending when
// position is nil or inserting at position and shifting later entries
// right. Duplicate track ids are permitted.
func (c *Core) AddTracks(ctx context.Context, playlistID, callerID string, isAdmin bool, trackIDs []string, position *int) (*domain.Playlist, error) {
	if len(trackIDs) == 0 {
		return nil, apierr.Validation(apierr.CodeInvalidPosition, "at least one track id is required")
	}
	if c.cfg.MaxAddBatch > 0 && len(trackIDs) > c.cfg.MaxAddBatch {
		return nil, apierr.Validation(apierr.CodeInvalidPosition, fmt.Sprintf("at most %d tracks may be added per call", c.cfg.MaxAddBatch))
	}

	p, err := c.loadOwned(ctx, playlistID, callerID, isAdmin)
	if err != nil {
		return nil, err
	}
	if c.cfg.MaxTracksPerPlaylist > 0 && len(p.Entries)+len(trackIDs) > c.cfg.MaxTracksPerPlaylist {
		return nil, apierr.Conflict(apierr.CodeQuotaExceeded, "playlist track limit would be exceeded")
	}

	now := time.Now().UTC()
	var addedDuration float64
	newEntries := make([]domain.PlaylistEntry, 0, len(trackIDs))
	for _, trackID := range trackIDs {
		t, err := c.db.Tracks().Get(ctx, trackID)
		if err != nil {
			if err == docstore.ErrNotFound {
				return nil, apierr.NotFound(apierr.CodeTrackNotFound, fmt.Sprintf("track %s not found", trackID))
			}
			return nil, fmt.Errorf("playlist: load track %s: %w", trackID, err)
		}
		if t.UserID != p.UserID {
			return nil, apierr.AccessDenied(fmt.Sprintf("track %s does not belong to the playlist owner", trackID))
		}
		if t.Status == domain.TrackStatusDeleted || t.Status == domain.TrackStatusFailed {
			return nil, apierr.Conflict(apierr.CodeTrackDeleted, fmt.Sprintf("track %s is not available to add to a playlist", trackID))
		}
		newEntries = append(newEntries, domain.PlaylistEntry{TrackID: trackID, AddedAt: now})
		addedDuration += t.DurationSeconds
	}

	if position == nil {
		p.Entries = append(p.Entries, newEntries...)
	} else {
		idx := *position
		if idx < 0 || idx > len(p.Entries) {
			return nil, apierr.Validation(apierr.CodeInvalidPosition, "position is out of range")
		}
		merged := make([]domain.PlaylistEntry, 0, len(p.Entries)+len(newEntries))
		merged = append(merged, p.Entries[:idx]...)
		merged = append(merged, newEntries...)
		merged = append(merged, p.Entries[idx:]...)
		p.Entries = merged
	}
	p.Densify()
	p.TotalDuration += addedDuration
	p.UpdatedAt = now

	if err := c.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RemoveAt removes the entry at position and compacts positions so the
// sequence remains dense.
func (c *Core) RemoveAt(ctx context.Context, playlistID, callerID string, isAdmin bool, position int) (*domain.Playlist, error) {
	p, err := c.loadOwned(ctx, playlistID, callerID, isAdmin)
	if err != nil {
		return nil, err
	}
	if position < 0 || position >= len(p.Entries) {
		return nil, apierr.Validation(apierr.CodeInvalidPosition, "position is out of range")
	}

	removed := p.Entries[position]
	if t, err := c.db.Tracks().Get(ctx, removed.TrackID); err == nil {
		p.TotalDuration -= t.DurationSeconds
		if p.TotalDuration < 0 {
			p.TotalDuration = 0
		}
	}
	p.Entries = append(p.Entries[:position], p.Entries[position+1:]...)
	p.Densify()
	p.UpdatedAt = time.Now().UTC()

	if err := c.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Move is one {from,to} step of a Reorder call.
type Move struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// applyMoves applies moves sequentially to entries' dense position
// sequence and returns the result, without mutating entries. Every move is
// checked against the sequence as it stands after the previous move; the
// first out-of-range move rejects the whole batch so Reorder never applies
// a partial reorder.
func applyMoves(entries []domain.PlaylistEntry, moves []Move) ([]domain.PlaylistEntry, error) {
	working := append([]domain.PlaylistEntry(nil), entries...)
	n := len(working)
	for _, mv := range moves {
		if mv.From < 0 || mv.From >= n || mv.To < 0 || mv.To >= n {
			return nil, apierr.Validation(apierr.CodeInvalidPosition, "move references a position outside the current sequence")
		}
		if mv.From == mv.To {
			continue
		}
		entry := working[mv.From]
		working = append(working[:mv.From], working[mv.From+1:]...)
		tail := append([]domain.PlaylistEntry{}, working[mv.To:]...)
		working = append(working[:mv.To], entry)
		working = append(working, tail...)
	}
	return working, nil
}

// Reorder applies moves sequentially to the playlist's dense position
// sequence. Every move is validated against the in-progress sequence
// before being applied; if any move names an out-of-range position the
// whole call is rejected and no change is persisted.
func (c *Core) Reorder(ctx context.Context, playlistID, callerID string, isAdmin bool, moves []Move) (*domain.Playlist, error) {
	p, err := c.loadOwned(ctx, playlistID, callerID, isAdmin)
	if err != nil {
		return nil, err
	}

	working, err := applyMoves(p.Entries, moves)
	if err != nil {
		return nil, err
	}

	p.Entries = working
	p.Densify()
	p.UpdatedAt = time.Now().UTC()

	if err := c.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CascadeRemove removes every occurrence of trackID from userID's
// playlists, re-densifying positions and counts. Called by the lifecycle
// worker after a track's audio is permanently deleted; trackDuration must
// be read from the track before its document is deleted, since the row
// this removal runs against no longer exists by then.
func (c *Core) CascadeRemove(ctx context.Context, trackID, userID string, trackDuration float64) error {
	referencing, err := c.db.Playlists().ListReferencing(ctx, trackID)
	if err != nil {
		return fmt.Errorf("playlist: find playlists referencing %s: %w", trackID, err)
	}
	for _, p := range referencing {
		if p.UserID != userID {
			continue
		}
		removedCount := 0
		kept := p.Entries[:0]
		for _, e := range p.Entries {
			if e.TrackID == trackID {
				removedCount++
				continue
			}
			kept = append(kept, e)
		}
		if removedCount == 0 {
			continue // nothing referenced this track after all
		}
		p.Entries = kept
		p.Densify()
		p.TotalDuration -= trackDuration * float64(removedCount)
		if p.TotalDuration < 0 {
			p.TotalDuration = 0
		}
		p.UpdatedAt = time.Now().UTC()
		if err := c.save(ctx, p); err != nil {
			return fmt.Errorf("playlist: cascade remove from %s: %w", p.ID, err)
		}
	}
	return nil
}

// save applies an optimistic-concurrency write using the confirmed-correct
// expected-version-then-increment pattern (see internal/processor.Core.saveTrack).
func (c *Core) save(ctx context.Context, p *domain.Playlist) error {
	expected := p.Version
	p.Version = expected + 1
	if err := c.db.Playlists().Update(ctx, p, expected); err != nil {
		if err == docstore.ErrConcurrency {
			return apierr.Conflict(apierr.CodePlaylistConcurrency, "playlist was modified concurrently, reload and retry")
		}
		return fmt.Errorf("playlist: save %s: %w", p.ID, err)
	}
	return nil
}
