// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package upload

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/novatune/backend/internal/apierr"
	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/docstore"
	"github.com/novatune/backend/internal/domain"
	"github.com/novatune/backend/internal/objectstore"
)

// Presigner is the subset of objectstore.Client the core depends on.
type Presigner interface {
	PresignUpload(ctx context.Context, objectKey, contentType string, contentLength int64) (*objectstore.PresignedRequest, error)
}

// Core implements the Upload.Initiate and Upload.Sweep operations.
type Core struct {
	docs Presigner
	db   *docstore.Client
	cfg  config.UploadConfig
}

// NewCore wires a Core from its dependencies.
func NewCore(db *docstore.Client, presigner Presigner, cfg config.UploadConfig) *Core {
	return &Core{docs: presigner, db: db, cfg: cfg}
}

// InitiateRequest is the input to Initiate.
type InitiateRequest struct {
	FileName      string
	MimeType      string
	FileSizeBytes int64
	Title         string
	Artist        string
}

// InitiateResult is returned to the client to perform the direct PUT.
type InitiateResult struct {
	UploadID     string    `json:"uploadId"`
	TrackID      string    `json:"trackId"`
	PresignedURL string    `json:"presignedUrl"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ObjectKey    string    `json:"objectKey"`
}

// Initiate validates an upload request, reserves a track id and object key,
// issues a presigned PUT, and persists a Pending UploadSession.
func (c *Core) Initiate(ctx context.Context, userID string, req InitiateRequest) (*InitiateResult, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}

	user, err := c.db.Users().Get(ctx, userID)
	if err != nil {
		if err == docstore.ErrNotFound {
			return nil, apierr.NotFound(apierr.CodeUserNotFound, "user not found")
		}
		return nil, fmt.Errorf("upload: load user: %w", err)
	}
	if user.StorageUsedBytes+req.FileSizeBytes > c.cfg.PerUserStorageQuota {
		return nil, apierr.QuotaExceeded(user.StorageUsedBytes, c.cfg.PerUserStorageQuota, req.FileSizeBytes)
	}
	if c.cfg.MaxTracksPerUser > 0 && user.TrackCount >= c.cfg.MaxTracksPerUser {
		return nil, apierr.Conflict(apierr.CodeQuotaExceeded, "track count limit reached")
	}

	trackID := domain.NewID()
	nonce, err := randomNonce()
	if err != nil {
		return nil, fmt.Errorf("upload: generate nonce: %w", err)
	}
	objectKey := fmt.Sprintf("audio/%s/%s/%s", userID, trackID, nonce)

	presigned, err := c.docs.PresignUpload(ctx, objectKey, req.MimeType, req.FileSizeBytes)
	if err != nil {
		return nil, apierr.ServiceUnavailable("could not issue upload url").WithCause(err)
	}

	now := time.Now().UTC()
	session := &domain.UploadSession{
		ID:                  domain.NewID(),
		UserID:              userID,
		TrackID:             trackID,
		ObjectKey:           objectKey,
		ExpectedMimeType:    strings.ToLower(req.MimeType),
		MaxAllowedSizeBytes: req.FileSizeBytes,
		CreatedAt:           now,
		ExpiresAt:           presigned.ExpiresAt,
		Status:              domain.UploadStatusPending,
		FileName:            req.FileName,
		Title:               req.Title,
		Artist:              req.Artist,
	}
	if err := c.db.UploadSessions().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("upload: persist session: %w", err)
	}

	return &InitiateResult{
		UploadID:     session.ID,
		TrackID:      trackID,
		PresignedURL: presigned.URL,
		ExpiresAt:    presigned.ExpiresAt,
		ObjectKey:    objectKey,
	}, nil
}

func (c *Core) validate(req InitiateRequest) error {
	if strings.TrimSpace(req.FileName) == "" || strings.ContainsAny(req.FileName, "/\\") || filepath.Base(req.FileName) != req.FileName {
		return apierr.Validation(apierr.CodeInvalidFileName, "file name is empty or contains path separators")
	}
	if !allowedMime(c.cfg.AllowedMimeTypes, req.MimeType) {
		return apierr.Validation(apierr.CodeUnsupportedMimeType, fmt.Sprintf("mime type %q is not supported", req.MimeType))
	}
	if req.FileSizeBytes <= 0 || req.FileSizeBytes > c.cfg.MaxFileSizeBytes {
		return apierr.Validation(apierr.CodeFileTooLarge, "file size exceeds the configured maximum")
	}
	return nil
}

func allowedMime(allowlist []string, mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, m := range allowlist {
		if strings.ToLower(m) == mimeType {
			return true
		}
	}
	return false
}

// randomNonce returns a 22-character base64url nonce (16 random bytes,
// unpadded) used as the final object key segment.
func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// TitleFromFileName derives a default track title from an uploaded file's
// stem, used by the ingestor when a session carries no title.
func TitleFromFileName(fileName string) string {
	ext := filepath.Ext(fileName)
	return strings.TrimSuffix(fileName, ext)
}

// Sweep marks every Pending session whose ExpiresAt has elapsed as Expired.
// Returns the number of sessions swept.
func (c *Core) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Format(time.RFC3339Nano)
	pending, err := c.db.UploadSessions().ListPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("upload: list pending sessions: %w", err)
	}
	swept := 0
	for _, session := range pending {
		session.Status = domain.UploadStatusExpired
		if err := c.db.UploadSessions().Update(ctx, session); err != nil {
			return swept, fmt.Errorf("upload: expire session %s: %w", session.ID, err)
		}
		swept++
	}
	return swept, nil
}
