// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package track

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/novatune/backend/internal/apierr"
	"github.com/novatune/backend/internal/bus"
	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/docstore"
	"github.com/novatune/backend/internal/domain"
	"github.com/novatune/backend/internal/objectstore"
	"github.com/novatune/backend/internal/outbox"
)

// Cache is the subset of cache.Client the track core depends on.
type Cache interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration)
}

// Presigner is the subset of objectstore.Client the track core depends on.
type Presigner interface {
	PresignDownload(ctx context.Context, objectKey string) (*objectstore.PresignedRequest, error)
}

// Core implements the track core: List, Get, Update, Delete, Restore, and
// IssueStreamUrl (spec §4.7).
type Core struct {
	db      *docstore.Client
	objects Presigner
	cache   Cache
	outbox  outbox.Store
	topics  bus.Topics
	cfg     config.TrackConfig
}

// NewCore wires a Core from its dependencies.
func NewCore(db *docstore.Client, objects Presigner, cache Cache, outboxStore outbox.Store, topics bus.Topics, cfg config.TrackConfig) *Core {
	return &Core{db: db, objects: objects, cache: cache, outbox: outboxStore, topics: topics, cfg: cfg}
}

func streamCacheKey(userID, trackID string) string {
	return fmt.Sprintf("stream:%s:%s", userID, trackID)
}

// ListFilter is the input to List.
type ListFilter struct {
	Search         string
	Status         domain.TrackStatus
	SortBy         string // one of createdAt, updatedAt, title, duration
	SortOrder      string // asc | desc
	Cursor         string
	Limit          int32
	IncludeDeleted bool
}

// ListResult is the output of List.
type ListResult struct {
	Items      []*domain.Track
	NextCursor string
}

// List pages through userID's library, optionally filtered by search text
// or status, excluding soft-deleted tracks unless IncludeDeleted is set.
func (c *Core) List(ctx context.Context, userID string, filter ListFilter) (*ListResult, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = c.cfg.DefaultPageSize
	}
	if limit > c.cfg.MaxPageSize {
		limit = c.cfg.MaxPageSize
	}

	if strings.TrimSpace(filter.Search) != "" {
		hits, err := c.db.SearchTracks(ctx, userID, filter.Search, c.cfg.SearchResultLimit)
		if err != nil {
			return nil, fmt.Errorf("track: search: %w", err)
		}
		hits = filterTracks(hits, filter)
		return &ListResult{Items: hits}, nil
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	descending := filter.SortOrder != "asc"

	if sortBy == "createdAt" {
		var after *docstore.TrackCursor
		if filter.Cursor != "" {
			cur, err := decodeCursor(filter.Cursor, c.cfg.CursorMaxAge)
			if err != nil {
				return nil, err
			}
			after = cur
		}
		items, err := c.db.Tracks().ListByUser(ctx, userID, limit, after)
		if err != nil {
			return nil, fmt.Errorf("track: list by user: %w", err)
		}
		if !descending {
			reverse(items)
		}
		items = filterTracks(items, filter)
		result := &ListResult{Items: items}
		if len(items) > 0 && int32(len(items)) == limit {
			result.NextCursor = encodeCursor(userID, items[len(items)-1])
		}
		return result, nil
	}

	// Other sort keys have no dedicated index: fetch one bounded page
	// ordered by createdAt and re-sort it in process. This sacrifices
	// stable multi-page ordering for non-default sorts; pagination beyond
	// the first page is not offered for them (NextCursor stays empty).
	items, err := c.db.Tracks().ListByUser(ctx, userID, c.cfg.MaxPageSize, nil)
	if err != nil {
		return nil, fmt.Errorf("track: list by user: %w", err)
	}
	items = filterTracks(items, filter)
	sortTracks(items, sortBy, descending)
	if int32(len(items)) > limit {
		items = items[:limit]
	}
	return &ListResult{Items: items}, nil
}

func filterTracks(items []*domain.Track, filter ListFilter) []*domain.Track {
	out := items[:0]
	for _, t := range items {
		if !filter.IncludeDeleted && t.Status == domain.TrackStatusDeleted {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, t)
	}
	return out
}

func sortTracks(items []*domain.Track, sortBy string, descending bool) {
	less := func(i, j int) bool {
		switch sortBy {
		case "title":
			return items[i].Title < items[j].Title
		case "duration":
			return items[i].DurationSeconds < items[j].DurationSeconds
		case "updatedAt":
			return items[i].UpdatedAt.Before(items[j].UpdatedAt)
		default:
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
	}
	if descending {
		sort.SliceStable(items, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.SliceStable(items, less)
}

func reverse(items []*domain.Track) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func (c *Core) loadOwned(ctx context.Context, trackID, callerID string, isAdmin bool) (*domain.Track, error) {
	t, err := c.db.Tracks().Get(ctx, trackID)
	if err != nil {
		if err == docstore.ErrNotFound {
			return nil, apierr.NotFound(apierr.CodeTrackNotFound, "track not found")
		}
		return nil, fmt.Errorf("track: load %s: %w", trackID, err)
	}
	if !isAdmin && t.UserID != callerID {
		return nil, apierr.AccessDenied("track does not belong to the caller")
	}
	return t, nil
}

// Get returns full track details, enforcing ownership (or admin access).
func (c *Core) Get(ctx context.Context, trackID, callerID string, isAdmin bool) (*domain.Track, error) {
	return c.loadOwned(ctx, trackID, callerID, isAdmin)
}

// UpdateRequest carries the optional merge fields for Update.
type UpdateRequest struct {
	Title  *string
	Artist *string
}

// Update merges the provided fields into the track under optimistic
// concurrency.
func (c *Core) Update(ctx context.Context, trackID, callerID string, isAdmin bool, req UpdateRequest) (*domain.Track, error) {
	t, err := c.loadOwned(ctx, trackID, callerID, isAdmin)
	if err != nil {
		return nil, err
	}
	if t.Status == domain.TrackStatusDeleted {
		return nil, apierr.Conflict(apierr.CodeTrackDeleted, "track has been deleted")
	}
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Artist != nil {
		t.Artist = *req.Artist
	}
	t.UpdatedAt = time.Now().UTC()
	if err := c.save(ctx, t); err != nil {
		if err == docstore.ErrConcurrency {
			return nil, apierr.Conflict(apierr.CodeTrackConcurrency, "track was modified concurrently, reload and retry")
		}
		return nil, fmt.Errorf("track: update %s: %w", trackID, err)
	}
	return t, nil
}

// Delete soft-deletes a track, schedules its hard deletion after the grace
// period, emits TrackDeleted via the outbox, and invalidates its stream
// cache entry.
func (c *Core) Delete(ctx context.Context, trackID, callerID string, isAdmin bool, gracePeriod time.Duration) error {
	t, err := c.loadOwned(ctx, trackID, callerID, isAdmin)
	if err != nil {
		return err
	}
	if t.Status == domain.TrackStatusDeleted {
		return apierr.Conflict(apierr.CodeTrackAlreadyDeleted, "track is already deleted")
	}

	now := time.Now().UTC()
	scheduledDeletionAt := now.Add(gracePeriod)
	t.PreDeleteStatus = t.Status
	t.Status = domain.TrackStatusDeleted
	t.DeletedAt = &now
	t.ScheduledDeletionAt = &scheduledDeletionAt
	t.UpdatedAt = now

	correlationID := domain.NewID()
	payload := bus.TrackDeletedPayload{
		TrackID:             t.ID,
		UserID:              t.UserID,
		ObjectKey:           t.ObjectKey,
		WaveformObjectKey:   t.WaveformObjectKey,
		FileSize:            t.FileSizeBytes,
		DeletedAt:           now,
		ScheduledDeletionAt: scheduledDeletionAt,
		CorrelationID:       correlationID,
	}
	msg, err := c.trackDeletedMessage(payload)
	if err != nil {
		return fmt.Errorf("track: build track-deleted outbox message: %w", err)
	}

	// The soft-delete write and its TrackDeleted announcement land in one
	// TransactWriteItems call so a crash between them can never leave the
	// track Deleted with no announcement ever published, or vice versa.
	expected := t.Version
	t.Version = expected + 1
	if err := c.db.Tracks().UpdateWithOutbox(ctx, t, expected, msg); err != nil {
		if err == docstore.ErrConcurrency {
			return apierr.Conflict(apierr.CodeTrackConcurrency, "track was modified concurrently, reload and retry")
		}
		return fmt.Errorf("track: soft delete %s: %w", trackID, err)
	}

	// The stream cache entry is invalidated by internal/streaming's
	// TrackDeleted consumer, not inline here — that keeps invalidation
	// correct even when the mutation and the cache live in different
	// replicas or the write succeeds but this process crashes immediately
	// after.
	return nil
}

// Restore reverts a soft-deleted track within its grace window.
func (c *Core) Restore(ctx context.Context, trackID, callerID string, isAdmin bool) (*domain.Track, error) {
	t, err := c.loadOwned(ctx, trackID, callerID, isAdmin)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TrackStatusDeleted {
		return nil, apierr.Conflict(apierr.CodeTrackNotDeleted, "track is not deleted")
	}
	now := time.Now().UTC()
	if t.RestorationExpired(now) {
		return nil, apierr.New(apierr.KindRestorationExpired, apierr.CodeRestorationExpired, "the restoration grace period has elapsed")
	}
	t.Status = t.PreDeleteStatus
	if t.Status == "" {
		t.Status = domain.TrackStatusReady
	}
	t.PreDeleteStatus = ""
	t.DeletedAt = nil
	t.ScheduledDeletionAt = nil
	t.UpdatedAt = now

	if err := c.save(ctx, t); err != nil {
		if err == docstore.ErrConcurrency {
			return nil, apierr.Conflict(apierr.CodeTrackConcurrency, "track was modified concurrently, reload and retry")
		}
		return nil, fmt.Errorf("track: restore %s: %w", trackID, err)
	}
	return t, nil
}

// StreamURL is returned by IssueStreamUrl.
type StreamURL struct {
	StreamURL             string    `json:"streamUrl"`
	ExpiresAt             time.Time `json:"expiresAt"`
	ContentType           string    `json:"contentType"`
	FileSize              int64     `json:"fileSize"`
	SupportsRangeRequests bool      `json:"supportsRangeRequests"`
}

type streamCacheEntry struct {
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expiresAt"`
	ContentType string    `json:"contentType"`
	FileSize    int64     `json:"fileSize"`
}

// IssueStreamUrl returns a cached or freshly presigned GET URL for a
// track's audio, enforcing that the track is Ready, streamable, and its
// owner is not disabled.
func (c *Core) IssueStreamUrl(ctx context.Context, trackID, callerID string, isAdmin, ownerDisabled bool) (*StreamURL, error) {
	t, err := c.loadOwned(ctx, trackID, callerID, isAdmin)
	if err != nil {
		return nil, err
	}
	if ownerDisabled {
		return nil, apierr.AccessDenied("the track owner's account is disabled")
	}
	if !t.Streamable() {
		return nil, apierr.Conflict(apierr.CodeTrackDeleted, "track is not available for streaming")
	}

	now := time.Now().UTC()
	key := streamCacheKey(t.UserID, t.ID)
	refreshBuffer := c.cfg.StreamRefreshBuffer
	if refreshBuffer <= 0 {
		refreshBuffer = 30 * time.Second
	}

	var cached streamCacheEntry
	if err := c.cache.Get(ctx, key, &cached); err == nil && cached.ExpiresAt.After(now.Add(refreshBuffer)) {
		return &StreamURL{
			StreamURL:             cached.URL,
			ExpiresAt:             cached.ExpiresAt,
			ContentType:           cached.ContentType,
			FileSize:              t.FileSizeBytes,
			SupportsRangeRequests: true,
		}, nil
	}

	presigned, err := c.objects.PresignDownload(ctx, t.ObjectKey)
	if err != nil {
		return nil, apierr.ServiceUnavailable("could not issue a stream url").WithCause(err)
	}

	contentType := t.MimeType
	entry := streamCacheEntry{URL: presigned.URL, ExpiresAt: presigned.ExpiresAt, ContentType: contentType, FileSize: t.FileSizeBytes}
	ttl := time.Until(presigned.ExpiresAt) - refreshBuffer
	if ttl < 0 {
		ttl = time.Until(presigned.ExpiresAt)
	}
	c.cache.Set(ctx, key, entry, ttl)

	return &StreamURL{
		StreamURL:             presigned.URL,
		ExpiresAt:             presigned.ExpiresAt,
		ContentType:           contentType,
		FileSize:              t.FileSizeBytes,
		SupportsRangeRequests: true,
	}, nil
}

// save applies an optimistic-concurrency write using the confirmed-correct
// expected-version-then-increment pattern (see internal/processor.Core.saveTrack).
func (c *Core) save(ctx context.Context, t *domain.Track) error {
	expected := t.Version
	t.Version = expected + 1
	return c.db.Tracks().Update(ctx, t, expected)
}

// trackDeletedMessage builds the pending outbox row for a TrackDeleted
// announcement. Delete lands this in the same transaction as the track's
// soft-delete write (docstore.Tracks.UpdateWithOutbox) rather than
// appending it through c.outbox separately.
func (c *Core) trackDeletedMessage(payload bus.TrackDeletedPayload) (*outbox.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal track-deleted payload: %w", err)
	}
	return &outbox.Message{
		ID:            domain.NewID(),
		Type:          bus.TypeTrackDeleted,
		Topic:         c.topics.TrackDeletions,
		PartitionKey:  payload.UserID,
		Payload:       body,
		CorrelationID: payload.CorrelationID,
		Status:        outbox.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}
