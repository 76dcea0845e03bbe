// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package track

import (
	"encoding/base64"
	"time"

	"github.com/goccy/go-json"

	"github.com/novatune/backend/internal/apierr"
	"github.com/novatune/backend/internal/docstore"
	"github.com/novatune/backend/internal/domain"
)

// cursorEnvelope is the decoded shape of a List page token. IssuedAt lets
// decodeCursor reject stale tokens independently of whether the row they
// point to still exists.
type cursorEnvelope struct {
	UserID    string    `json:"userId"`
	CreatedAt string    `json:"createdAt"`
	TrackID   string    `json:"trackId"`
	IssuedAt  time.Time `json:"issuedAt"`
}

func encodeCursor(userID string, track *domain.Track) string {
	env := cursorEnvelope{
		UserID:    userID,
		CreatedAt: track.CreatedAt.UTC().Format(time.RFC3339Nano),
		TrackID:   track.ID,
		IssuedAt:  time.Now().UTC(),
	}
	body, _ := json.Marshal(env)
	return base64.RawURLEncoding.EncodeToString(body)
}

// decodeCursor decodes and validates an opaque cursor string, rejecting one
// older than maxAge with apierr.CodeCursorExpired.
func decodeCursor(raw string, maxAge time.Duration) (*docstore.TrackCursor, error) {
	body, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, apierr.Validation(apierr.CodeCursorExpired, "cursor is malformed")
	}
	var env cursorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apierr.Validation(apierr.CodeCursorExpired, "cursor is malformed")
	}
	if maxAge > 0 && time.Since(env.IssuedAt) > maxAge {
		return nil, apierr.Validation(apierr.CodeCursorExpired, "cursor has expired, restart pagination from the first page")
	}
	return &docstore.TrackCursor{UserID: env.UserID, CreatedAt: env.CreatedAt, ID: env.TrackID}, nil
}
