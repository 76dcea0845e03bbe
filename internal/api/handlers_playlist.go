// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/novatune/backend/internal/auth"
	"github.com/novatune/backend/internal/domain"
	"github.com/novatune/backend/internal/playlist"
)

// PlaylistHandlers serves the /playlists/* routes over a playlist.Core.
type PlaylistHandlers struct {
	core *playlist.Core
}

// NewPlaylistHandlers wires playlist handlers against core.
func NewPlaylistHandlers(core *playlist.Core) *PlaylistHandlers {
	return &PlaylistHandlers{core: core}
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

// Create creates a new, initially empty playlist.
func (h *PlaylistHandlers) Create(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	var req createPlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		NewResponseWriter(w, r).BadRequest("malformed request body")
		return
	}

	p, err := h.core.Create(r.Context(), subject.UserID, playlist.CreateRequest{
		Name:        req.Name,
		Description: req.Description,
		Visibility:  domain.PlaylistVisibility(req.Visibility),
	})
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(p)
}

// Get returns a single playlist the caller may view.
func (h *PlaylistHandlers) Get(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	id := chi.URLParam(r, "playlistID")
	p, err := h.core.Get(r.Context(), id, subject.UserID, subject.IsAdmin())
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(p)
}

// List returns the caller's playlists, optionally filtered by search.
func (h *PlaylistHandlers) List(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	search := r.URL.Query().Get("search")
	limit := queryInt32(r, "limit", 0)

	result, err := h.core.List(r.Context(), subject.UserID, search, limit)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(result.Items)
}

type updatePlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Visibility  *string `json:"visibility"`
}

// Update edits a playlist's name, description, or visibility.
func (h *PlaylistHandlers) Update(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	var req updatePlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		NewResponseWriter(w, r).BadRequest("malformed request body")
		return
	}

	var visibility *domain.PlaylistVisibility
	if req.Visibility != nil {
		v := domain.PlaylistVisibility(*req.Visibility)
		visibility = &v
	}

	id := chi.URLParam(r, "playlistID")
	p, err := h.core.Update(r.Context(), id, subject.UserID, subject.IsAdmin(), playlist.UpdateRequest{
		Name:        req.Name,
		Description: req.Description,
		Visibility:  visibility,
	})
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(p)
}

// Delete removes a playlist outright (playlists have no soft-delete/restore window).
func (h *PlaylistHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	id := chi.URLParam(r, "playlistID")
	if err := h.core.Delete(r.Context(), id, subject.UserID, subject.IsAdmin()); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

type addTracksRequest struct {
	TrackIDs []string `json:"trackIds"`
	Position *int     `json:"position"`
}

// AddTracks appends (or inserts, if Position is set) tracks into the playlist.
func (h *PlaylistHandlers) AddTracks(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	var req addTracksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		NewResponseWriter(w, r).BadRequest("malformed request body")
		return
	}

	id := chi.URLParam(r, "playlistID")
	p, err := h.core.AddTracks(r.Context(), id, subject.UserID, subject.IsAdmin(), req.TrackIDs, req.Position)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(p)
}

// RemoveAt removes the entry at the given dense position.
func (h *PlaylistHandlers) RemoveAt(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	id := chi.URLParam(r, "playlistID")
	position := queryInt(r, "position", -1)
	if position < 0 {
		NewResponseWriter(w, r).BadRequest("position is required")
		return
	}

	p, err := h.core.RemoveAt(r.Context(), id, subject.UserID, subject.IsAdmin(), position)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(p)
}

type reorderRequest struct {
	Moves []playlist.Move `json:"moves"`
}

// Reorder applies a batch of from/to position moves to the playlist.
func (h *PlaylistHandlers) Reorder(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		NewResponseWriter(w, r).BadRequest("malformed request body")
		return
	}

	id := chi.URLParam(r, "playlistID")
	p, err := h.core.Reorder(r.Context(), id, subject.UserID, subject.IsAdmin(), req.Moves)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(p)
}
