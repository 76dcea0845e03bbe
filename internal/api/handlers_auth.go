// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package api

import (
	"net/http"

	"github.com/novatune/backend/internal/auth"
)

// AuthHandlers serves the /auth/* routes over an auth.Core.
type AuthHandlers struct {
	core *auth.Core
}

// NewAuthHandlers wires auth handlers against core.
func NewAuthHandlers(core *auth.Core) *AuthHandlers {
	return &AuthHandlers{core: core}
}

func requestContext(r *http.Request) auth.RequestContext {
	return auth.RequestContext{
		IP:        clientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
		DeviceID:  r.Header.Get("X-Device-ID"),
	}
}

// clientIP returns the first X-Forwarded-For hop if present, else RemoteAddr.
// Trust in this header is established upstream by auth.Middleware's
// trusted-proxy check on the routes that need it; here it's best-effort
// metadata for audit logging, not an authorization decision.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	return r.RemoteAddr
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type tokenResponse struct {
	User         interface{} `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    int64       `json:"expiresIn"`
}

// Register creates a listener account and issues an initial token pair.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		NewResponseWriter(w, r).BadRequest("malformed request body")
		return
	}

	user, tokens, err := h.core.Register(r.Context(), req.Email, req.Password, req.DisplayName, requestContext(r))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).Created(tokenResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.AccessExpiresIn,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a listener and issues a token pair.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		NewResponseWriter(w, r).BadRequest("malformed request body")
		return
	}

	user, tokens, err := h.core.Login(r.Context(), req.Email, req.Password, requestContext(r))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).Success(tokenResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.AccessExpiresIn,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates a refresh token for a new token pair.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		NewResponseWriter(w, r).BadRequest("refreshToken is required")
		return
	}

	user, tokens, err := h.core.Refresh(r.Context(), req.RefreshToken, requestContext(r))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	NewResponseWriter(w, r).Success(tokenResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.AccessExpiresIn,
	})
}

// Logout revokes a single refresh token.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		NewResponseWriter(w, r).BadRequest("refreshToken is required")
		return
	}

	if err := h.core.Logout(r.Context(), subject.UserID, req.RefreshToken, requestContext(r)); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// LogoutAll revokes every refresh token and evicts every cached stream URL
// for the caller, ending all active sessions.
func (h *AuthHandlers) LogoutAll(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	if err := h.core.LogoutAll(r.Context(), subject.UserID, requestContext(r)); err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
