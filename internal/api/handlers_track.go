// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/novatune/backend/internal/auth"
	"github.com/novatune/backend/internal/domain"
	"github.com/novatune/backend/internal/track"
)

// TrackHandlers serves the /tracks/* routes over a track.Core.
type TrackHandlers struct {
	core          *track.Core
	deletionGrace time.Duration
}

// NewTrackHandlers wires track handlers against core. deletionGrace is the
// soft-delete restoration window, shared with the lifecycle worker's sweep.
func NewTrackHandlers(core *track.Core, deletionGrace time.Duration) *TrackHandlers {
	return &TrackHandlers{core: core, deletionGrace: deletionGrace}
}

// List returns the caller's tracks, filtered and paginated by query params.
func (h *TrackHandlers) List(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	filter := track.ListFilter{
		Search:         r.URL.Query().Get("search"),
		Status:         domain.TrackStatus(r.URL.Query().Get("status")),
		SortBy:         r.URL.Query().Get("sortBy"),
		SortOrder:      r.URL.Query().Get("sortOrder"),
		Cursor:         r.URL.Query().Get("cursor"),
		Limit:          queryInt32(r, "limit", 0),
		IncludeDeleted: queryBool(r, "includeDeleted", false),
	}

	result, err := h.core.List(r.Context(), subject.UserID, filter)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).SuccessWithPagination(result.Items, &PaginationMeta{
		Count:      len(result.Items),
		NextCursor: result.NextCursor,
		HasMore:    result.NextCursor != "",
	})
}

// Get returns a single track the caller owns, or any track if the caller is an admin.
func (h *TrackHandlers) Get(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	trackID := chi.URLParam(r, "trackID")
	t, err := h.core.Get(r.Context(), trackID, subject.UserID, subject.IsAdmin())
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(t)
}

type updateTrackRequest struct {
	Title  *string `json:"title"`
	Artist *string `json:"artist"`
}

// Update edits a track's mutable metadata fields.
func (h *TrackHandlers) Update(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	var req updateTrackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		NewResponseWriter(w, r).BadRequest("malformed request body")
		return
	}

	trackID := chi.URLParam(r, "trackID")
	t, err := h.core.Update(r.Context(), trackID, subject.UserID, subject.IsAdmin(), track.UpdateRequest{
		Title:  req.Title,
		Artist: req.Artist,
	})
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(t)
}

// Delete soft-deletes a track, scheduling its hard deletion after the
// configured grace period.
func (h *TrackHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	trackID := chi.URLParam(r, "trackID")
	if err := h.core.Delete(r.Context(), trackID, subject.UserID, subject.IsAdmin(), h.deletionGrace); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// Restore reverses a soft-delete within the restoration window.
func (h *TrackHandlers) Restore(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	trackID := chi.URLParam(r, "trackID")
	t, err := h.core.Restore(r.Context(), trackID, subject.UserID, subject.IsAdmin())
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(t)
}

// Stream issues a presigned, time-limited URL the client can use to stream
// the track's audio directly from object storage.
func (h *TrackHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	trackID := chi.URLParam(r, "trackID")
	stream, err := h.core.IssueStreamUrl(r.Context(), trackID, subject.UserID, subject.IsAdmin(), false)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(stream)
}
