// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package api

import (
	"net/http"

	"github.com/novatune/backend/internal/auth"
	"github.com/novatune/backend/internal/upload"
)

// UploadHandlers serves the /uploads route over an upload.Core.
type UploadHandlers struct {
	core *upload.Core
}

// NewUploadHandlers wires upload handlers against core.
func NewUploadHandlers(core *upload.Core) *UploadHandlers {
	return &UploadHandlers{core: core}
}

type initiateUploadRequest struct {
	FileName      string `json:"fileName"`
	MimeType      string `json:"mimeType"`
	FileSizeBytes int64  `json:"fileSizeBytes"`
	Title         string `json:"title"`
	Artist        string `json:"artist"`
}

// Initiate reserves a track id and object key and returns a presigned PUT
// URL the client uploads the audio file to directly.
func (h *UploadHandlers) Initiate(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("unauthorized")
		return
	}

	var req initiateUploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		NewResponseWriter(w, r).BadRequest("malformed request body")
		return
	}

	result, err := h.core.Initiate(r.Context(), subject.UserID, upload.InitiateRequest{
		FileName:      req.FileName,
		MimeType:      req.MimeType,
		FileSizeBytes: req.FileSizeBytes,
		Title:         req.Title,
		Artist:        req.Artist,
	})
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(result)
}
