// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/novatune/backend/internal/domain"
)

// AuthMode identifies how a request presented its credentials. NovaTune has
// a single bearer-token login model; the type stays distinct from a bare
// string so Authenticator.Name can't drift from it by typo.
type AuthMode string

const (
	// AuthModeNone is used on unauthenticated routes (register, login, health).
	AuthModeNone AuthMode = "none"

	// AuthModeJWT is the only credentialed mode: a signed access token.
	AuthModeJWT AuthMode = "jwt"
)

// Standard authentication errors returned by Authenticator implementations
// and internal/auth.Core.
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrExpiredCredentials indicates credentials have expired.
	ErrExpiredCredentials = errors.New("credentials expired")
)

// Authenticator extracts and validates a request's credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (*AuthSubject, error)
	Name() string
}

// AuthSubject is the authenticated caller, normalized from JWT claims into
// the shape every downstream handler and core consults for ownership and
// role checks.
type AuthSubject struct {
	UserID     string
	Email      string
	Roles      []domain.UserRole
	AuthMethod AuthMode
	IssuedAt   int64
	ExpiresAt  int64
}

// HasRole reports whether the subject holds the given role.
func (s *AuthSubject) HasRole(role domain.UserRole) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the subject holds the admin role.
func (s *AuthSubject) IsAdmin() bool {
	return s.HasRole(domain.RoleAdmin)
}

// IsExpired reports whether the authentication has expired.
func (s *AuthSubject) IsExpired() bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return time.Now().Unix() > s.ExpiresAt
}

// AuthSubjectFromClaims converts validated JWT Claims into an AuthSubject.
func AuthSubjectFromClaims(claims *Claims) *AuthSubject {
	if claims == nil {
		return nil
	}

	subject := &AuthSubject{
		UserID:     claims.UserID,
		Email:      claims.Email,
		AuthMethod: AuthModeJWT,
	}
	for _, r := range claims.Roles {
		subject.Roles = append(subject.Roles, domain.UserRole(r))
	}
	if claims.ExpiresAt != nil {
		subject.ExpiresAt = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		subject.IssuedAt = claims.IssuedAt.Unix()
	}
	return subject
}
