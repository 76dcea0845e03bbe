// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// refreshTokenBytes is the entropy of a newly minted refresh token, matching
// the access token's HS256 security margin.
const refreshTokenBytes = 32

// newRefreshToken returns a fresh opaque token scoped to userID and the
// hex-encoded SHA-256 hash that is actually persisted. The token is
// "<userId>.<random>" so Core.Refresh can recover the owning user's
// partition key (internal/docstore's RefreshTokens are looked up by
// (userId, hash), not by hash alone) without a second index; the random
// suffix, not the userId, is what makes the token unguessable.
func newRefreshToken(userID string) (plaintext, hash string, err error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate refresh token: %w", err)
	}
	plaintext = userID + "." + base64.RawURLEncoding.EncodeToString(buf)
	return plaintext, hashRefreshToken(plaintext), nil
}

func hashRefreshToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// splitRefreshToken recovers the owning userId from a presented refresh
// token's plaintext.
func splitRefreshToken(plaintext string) (userID string, ok bool) {
	userID, _, found := strings.Cut(plaintext, ".")
	if !found || userID == "" {
		return "", false
	}
	return userID, true
}
