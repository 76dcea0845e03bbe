// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/novatune/backend/internal/config"
)

// PasswordHasher hashes and verifies passwords with Argon2id, encoding the
// salt and the parameters used so a later config change to memory/iteration
// cost doesn't break verification of hashes minted under the old settings.
type PasswordHasher struct {
	cfg config.AuthConfig
}

// NewPasswordHasher returns a PasswordHasher using cfg's Argon2 parameters.
func NewPasswordHasher(cfg config.AuthConfig) *PasswordHasher {
	return &PasswordHasher{cfg: cfg}
}

// Hash returns the encoded Argon2id hash of password, in the form
// $argon2id$v=19$m=...,t=...,p=...$salt$hash (salt and hash in unpadded
// standard base64).
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.cfg.Argon2SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.cfg.Argon2Iterations, h.cfg.Argon2MemoryKB, h.cfg.Argon2Parallelism, h.cfg.Argon2KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.cfg.Argon2MemoryKB, h.cfg.Argon2Iterations, h.cfg.Argon2Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches the encoded hash, decoding the
// parameters and salt embedded in hash rather than trusting h.cfg so a
// config change doesn't invalidate every existing user's password.
func (h *PasswordHasher) Verify(password, encoded string) (bool, error) {
	var version int
	var memoryKB, iterations uint32
	var parallelism uint8

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("invalid hash format")
	}
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("parse version: %w", err)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memoryKB, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("parse params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memoryKB, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
