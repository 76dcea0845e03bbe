// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package resilience

import (
	"context"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/novatune/backend/internal/domain"
	"github.com/novatune/backend/internal/playlist"
)

// PlaylistCore is the subset of playlist.Core's exported surface
// WrapPlaylist decorates.
type PlaylistCore interface {
	Create(ctx context.Context, userID string, req playlist.CreateRequest) (*domain.Playlist, error)
	Get(ctx context.Context, playlistID, callerID string, isAdmin bool) (*domain.Playlist, error)
	List(ctx context.Context, userID, search string, limit int32) (*playlist.ListResult, error)
	Update(ctx context.Context, playlistID, callerID string, isAdmin bool, req playlist.UpdateRequest) (*domain.Playlist, error)
	Delete(ctx context.Context, playlistID, callerID string, isAdmin bool) error
	AddTracks(ctx context.Context, playlistID, callerID string, isAdmin bool, trackIDs []string, position *int) (*domain.Playlist, error)
	RemoveAt(ctx context.Context, playlistID, callerID string, isAdmin bool, position int) (*domain.Playlist, error)
	Reorder(ctx context.Context, playlistID, callerID string, isAdmin bool, moves []playlist.Move) (*domain.Playlist, error)
}

type playlistCoreWrapper struct {
	next PlaylistCore
	cb   *gobreaker.CircuitBreaker[interface{}]
	cfg  Config
}

// WrapPlaylist returns a PlaylistCore that runs every call of next through
// the same timeout-plus-breaker decoration Wrap applies to TrackCore.
func WrapPlaylist(next PlaylistCore, cfg Config) PlaylistCore {
	return &playlistCoreWrapper{next: next, cb: NewCircuitBreaker(cfg.CircuitBreaker), cfg: cfg}
}

func (w *playlistCoreWrapper) Create(ctx context.Context, userID string, req playlist.CreateRequest) (*domain.Playlist, error) {
	return execute(ctx, w.cb, w.cfg.Timeout, func(cctx context.Context) (*domain.Playlist, error) {
		return w.next.Create(cctx, userID, req)
	})
}

func (w *playlistCoreWrapper) Get(ctx context.Context, playlistID, callerID string, isAdmin bool) (*domain.Playlist, error) {
	return execute(ctx, w.cb, w.cfg.Timeout, func(cctx context.Context) (*domain.Playlist, error) {
		return w.next.Get(cctx, playlistID, callerID, isAdmin)
	})
}

func (w *playlistCoreWrapper) List(ctx context.Context, userID, search string, limit int32) (*playlist.ListResult, error) {
	return execute(ctx, w.cb, w.cfg.Timeout, func(cctx context.Context) (*playlist.ListResult, error) {
		return w.next.List(cctx, userID, search, limit)
	})
}

func (w *playlistCoreWrapper) Update(ctx context.Context, playlistID, callerID string, isAdmin bool, req playlist.UpdateRequest) (*domain.Playlist, error) {
	return execute(ctx, w.cb, w.cfg.Timeout, func(cctx context.Context) (*domain.Playlist, error) {
		return w.next.Update(cctx, playlistID, callerID, isAdmin, req)
	})
}

func (w *playlistCoreWrapper) Delete(ctx context.Context, playlistID, callerID string, isAdmin bool) error {
	_, err := execute(ctx, w.cb, w.cfg.Timeout, func(cctx context.Context) (struct{}, error) {
		return struct{}{}, w.next.Delete(cctx, playlistID, callerID, isAdmin)
	})
	return err
}

func (w *playlistCoreWrapper) AddTracks(ctx context.Context, playlistID, callerID string, isAdmin bool, trackIDs []string, position *int) (*domain.Playlist, error) {
	return execute(ctx, w.cb, w.cfg.Timeout, func(cctx context.Context) (*domain.Playlist, error) {
		return w.next.AddTracks(cctx, playlistID, callerID, isAdmin, trackIDs, position)
	})
}

func (w *playlistCoreWrapper) RemoveAt(ctx context.Context, playlistID, callerID string, isAdmin bool, position int) (*domain.Playlist, error) {
	return execute(ctx, w.cb, w.cfg.Timeout, func(cctx context.Context) (*domain.Playlist, error) {
		return w.next.RemoveAt(cctx, playlistID, callerID, isAdmin, position)
	})
}

func (w *playlistCoreWrapper) Reorder(ctx context.Context, playlistID, callerID string, isAdmin bool, moves []playlist.Move) (*domain.Playlist, error) {
	return execute(ctx, w.cb, w.cfg.Timeout, func(cctx context.Context) (*domain.Playlist, error) {
		return w.next.Reorder(cctx, playlistID, callerID, isAdmin, moves)
	})
}
