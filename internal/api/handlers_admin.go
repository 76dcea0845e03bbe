// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/novatune/backend/internal/admin"
	"github.com/novatune/backend/internal/auth"
	"github.com/novatune/backend/internal/domain"
)

// AdminHandlers serves the /admin/* routes over an admin.Core. Every route
// this type registers must be wrapped in auth.Middleware.RequireRole(domain.RoleAdmin, ...).
type AdminHandlers struct {
	core *admin.Core
}

// NewAdminHandlers wires admin handlers against core.
func NewAdminHandlers(core *admin.Core) *AdminHandlers {
	return &AdminHandlers{core: core}
}

// ListAudit returns the tamper-evident audit log.
func (h *AdminHandlers) ListAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.core.ListAudit(r.Context())
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(entries)
}

// VerifyAudit checks the audit log's hash chain for tampering.
func (h *AdminHandlers) VerifyAudit(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.VerifyAudit(r.Context())
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(result)
}

// ListUsers returns accounts matching an optional search term.
func (h *AdminHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	limit := queryInt32(r, "limit", 0)

	users, err := h.core.ListUsers(r.Context(), search, limit)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(users)
}

// GetUser returns a single account by id.
func (h *AdminHandlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	user, err := h.core.GetUser(r.Context(), id)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(user)
}

type updateUserStatusRequest struct {
	Status     domain.UserStatus `json:"status"`
	ReasonCode string            `json:"reasonCode"`
}

// UpdateUserStatus activates, disables, or marks an account pending deletion.
func (h *AdminHandlers) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	var req updateUserStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		NewResponseWriter(w, r).BadRequest("malformed request body")
		return
	}

	id := chi.URLParam(r, "userID")
	user, err := h.core.UpdateUserStatus(r.Context(), actor.UserID, actor.Email, id, admin.UpdateUserStatusRequest{
		Status:     req.Status,
		ReasonCode: req.ReasonCode,
	})
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(user)
}

// ListTracks returns every track matching an optional search term, across owners.
func (h *AdminHandlers) ListTracks(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	limit := queryInt32(r, "limit", 0)

	tracks, err := h.core.ListTracks(r.Context(), search, limit)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(tracks)
}

// GetTrack returns a single track by id, regardless of owner or status.
func (h *AdminHandlers) GetTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "trackID")
	t, err := h.core.GetTrack(r.Context(), id)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(t)
}

type moderateTrackRequest struct {
	Status     domain.ModerationStatus    `json:"status"`
	ReasonCode admin.ModerationReasonCode `json:"reasonCode"`
	Reason     string                     `json:"reason"`
}

// ModerateTrack sets a track's moderation verdict.
func (h *AdminHandlers) ModerateTrack(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	var req moderateTrackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		NewResponseWriter(w, r).BadRequest("malformed request body")
		return
	}

	id := chi.URLParam(r, "trackID")
	t, err := h.core.ModerateTrack(r.Context(), actor.UserID, actor.Email, id, admin.ModerateTrackRequest{
		Status:     req.Status,
		ReasonCode: req.ReasonCode,
		Reason:     req.Reason,
	})
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(t)
}

// DeleteTrack permanently deletes a track outside the owner grace-period flow.
func (h *AdminHandlers) DeleteTrack(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	id := chi.URLParam(r, "trackID")
	if err := h.core.DeleteTrack(r.Context(), actor.UserID, actor.Email, id); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
