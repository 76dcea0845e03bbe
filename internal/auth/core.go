// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/novatune/backend/internal/apierr"
	"github.com/novatune/backend/internal/audit"
	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/docstore"
	"github.com/novatune/backend/internal/domain"
	"github.com/novatune/backend/internal/logging"
	"github.com/novatune/backend/internal/ratelimit"
)

// Invalidator is the subset of streaming.Invalidator LogoutAll depends on to
// evict a user's cached stream URLs the moment every session is revoked.
type Invalidator interface {
	InvalidateAllForUser(ctx context.Context, userID string)
}

// TokenPair is returned on register, login, and refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresIn  int64 // seconds
	RefreshExpiresAt time.Time
}

// RequestContext carries the per-request details Core needs for rate
// limiting, lockout tracking, and audit logging without importing net/http.
type RequestContext struct {
	IP        string
	UserAgent string
	DeviceID  string
}

// Core implements the auth core: Register, Login, Refresh, Logout, and
// LogoutAll (spec §6 /auth/* routes).
type Core struct {
	db          *docstore.Client
	jwt         *JWTManager
	hasher      *PasswordHasher
	lockout     *LockoutManager
	limiter     *ratelimit.Manager
	invalidator Invalidator
	auditLog    *audit.Logger
	cfg         config.AuthConfig
}

// NewCore wires a Core from its dependencies.
func NewCore(db *docstore.Client, jwt *JWTManager, hasher *PasswordHasher, lockout *LockoutManager, limiter *ratelimit.Manager, invalidator Invalidator, auditLog *audit.Logger, cfg config.AuthConfig) *Core {
	return &Core{db: db, jwt: jwt, hasher: hasher, lockout: lockout, limiter: limiter, invalidator: invalidator, auditLog: auditLog, cfg: cfg}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (c *Core) loginPolicies() ratelimit.LoginPolicies {
	return ratelimit.LoginPolicies{
		PerIP:      ratelimit.Policy{Name: "login:ip", PermitLimit: int64(c.cfg.LoginRateLimitPerIP), Window: c.cfg.LoginRateLimitWindow},
		PerAccount: ratelimit.Policy{Name: "login:acct", PermitLimit: int64(c.cfg.LoginRateLimitPerAccount), Window: c.cfg.LoginRateLimitWindow},
	}
}

func auditSource(rc RequestContext) audit.Source {
	return audit.Source{IPAddress: rc.IP, UserAgent: rc.UserAgent}
}

// Register creates a new listener account and issues an initial token pair.
func (c *Core) Register(ctx context.Context, email, password, displayName string, rc RequestContext) (*domain.User, *TokenPair, error) {
	normalized := normalizeEmail(email)

	if err := config.RelaxedPasswordPolicy().ValidateWithError(password, normalized); err != nil {
		return nil, nil, apierr.Validation(apierr.CodeWeakPassword, err.Error())
	}

	if _, err := c.db.Users().GetByEmail(ctx, normalized); err == nil {
		return nil, nil, apierr.EmailTaken()
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return nil, nil, fmt.Errorf("auth: lookup email: %w", err)
	}

	hash, err := c.hasher.Hash(password)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user := &domain.User{
		ID:              domain.NewID(),
		Email:           email,
		EmailNormalized: normalized,
		DisplayName:     displayName,
		PasswordHash:    hash,
		Roles:           []domain.UserRole{domain.RoleListener},
		Status:          domain.UserStatusActive,
		CreatedAt:       time.Now().UTC(),
	}
	if err := c.db.Users().Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("auth: create user: %w", err)
	}

	tokens, err := c.issueTokenPair(ctx, user, rc)
	if err != nil {
		return nil, nil, err
	}

	c.auditLog.LogAuthSuccess(ctx, audit.Actor{ID: user.ID, Type: "user", Name: user.DisplayName, AuthMethod: string(AuthModeJWT)}, auditSource(rc), "register")

	return user, tokens, nil
}

// Login verifies credentials and issues a token pair, enforcing the
// combined IP+account rate limit and the account lockout policy before
// touching the password hash.
func (c *Core) Login(ctx context.Context, email, password string, rc RequestContext) (*domain.User, *TokenPair, error) {
	normalized := normalizeEmail(email)

	if ok, retry := c.limiter.AllowLogin(c.loginPolicies(), rc.IP, normalized); !ok {
		return nil, nil, apierr.RateLimitExceeded(int(retry.Seconds()))
	}

	if locked, remaining, err := c.lockout.CheckLocked(ctx, normalized); err != nil {
		logging.Error().Err(err).Msg("auth: check lockout")
	} else if locked {
		return nil, nil, apierr.AccountLocked(int(remaining.Seconds()))
	}

	user, err := c.db.Users().GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			c.recordFailedLogin(ctx, normalized, rc)
			return nil, nil, apierr.InvalidCredentials()
		}
		return nil, nil, fmt.Errorf("auth: lookup email: %w", err)
	}

	match, err := c.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: verify password: %w", err)
	}
	if !match {
		c.recordFailedLogin(ctx, normalized, rc)
		c.auditLog.LogAuthFailure(ctx, user.ID, user.DisplayName, auditSource(rc), "invalid_password")
		return nil, nil, apierr.InvalidCredentials()
	}

	if !user.IsActive() {
		c.auditLog.LogAuthFailure(ctx, user.ID, user.DisplayName, auditSource(rc), "account_disabled")
		return nil, nil, apierr.AccountDisabled()
	}

	if err := c.lockout.RecordSuccessfulLogin(ctx, normalized); err != nil {
		logging.Error().Err(err).Msg("auth: clear lockout")
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := c.db.Users().Update(ctx, user, user.Version); err != nil && !errors.Is(err, docstore.ErrConcurrency) {
		logging.Error().Err(err).Str("userId", user.ID).Msg("auth: record last login")
	}

	tokens, err := c.issueTokenPair(ctx, user, rc)
	if err != nil {
		return nil, nil, err
	}

	c.auditLog.LogAuthSuccess(ctx, audit.Actor{ID: user.ID, Type: "user", Name: user.DisplayName, AuthMethod: string(AuthModeJWT)}, auditSource(rc), "login")

	return user, tokens, nil
}

func (c *Core) recordFailedLogin(ctx context.Context, normalizedEmail string, rc RequestContext) {
	locked, remaining, err := c.lockout.RecordFailedAttempt(ctx, normalizedEmail, rc.IP, rc.UserAgent)
	if err != nil {
		logging.Error().Err(err).Msg("auth: record failed attempt")
		return
	}
	if locked {
		c.auditLog.LogAuthLockout(ctx, normalizedEmail, normalizedEmail, auditSource(rc), remaining, c.lockout.Config().MaxAttempts)
	}
}

// issueTokenPair mints an access token and a rotation-eligible refresh
// token, evicting the oldest active refresh token (FIFO) if the user is at
// their configured session limit.
func (c *Core) issueTokenPair(ctx context.Context, user *domain.User, rc RequestContext) (*TokenPair, error) {
	active, err := c.db.RefreshTokens().ListActiveByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth: list active sessions: %w", err)
	}
	if len(active) >= c.cfg.MaxActiveRefreshTokens {
		oldest := active[0]
		if err := c.db.RefreshTokens().Revoke(ctx, user.ID, oldest.TokenHash); err != nil {
			logging.Error().Err(err).Str("userId", user.ID).Msg("auth: evict oldest session")
		}
	}

	access, err := c.jwt.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("auth: issue access token: %w", err)
	}

	plaintext, hash, err := newRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	token := &domain.RefreshToken{
		TokenHash: hash,
		UserID:    user.ID,
		DeviceID:  rc.DeviceID,
		CreatedAt: now,
		ExpiresAt: now.Add(c.cfg.RefreshTokenTTL),
	}
	if err := c.db.RefreshTokens().Create(ctx, token); err != nil {
		return nil, fmt.Errorf("auth: persist refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     plaintext,
		AccessExpiresIn:  int64(c.cfg.AccessTokenTTL.Seconds()),
		RefreshExpiresAt: token.ExpiresAt,
	}, nil
}

// Refresh rotates refreshTokenPlaintext: the presented token is revoked and
// a new access/refresh pair is issued, so a stolen-then-replayed refresh
// token is detectable (its hash is already revoked on the legitimate
// client's next refresh).
func (c *Core) Refresh(ctx context.Context, refreshTokenPlaintext string, rc RequestContext) (*domain.User, *TokenPair, error) {
	userID, ok := splitRefreshToken(refreshTokenPlaintext)
	if !ok {
		return nil, nil, apierr.InvalidToken("malformed refresh token")
	}
	hash := hashRefreshToken(refreshTokenPlaintext)

	token, err := c.db.RefreshTokens().Get(ctx, userID, hash)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil, apierr.InvalidToken("refresh token not recognized")
		}
		return nil, nil, fmt.Errorf("auth: lookup refresh token: %w", err)
	}
	if !token.Active(time.Now().UTC()) {
		return nil, nil, apierr.InvalidToken("refresh token expired or revoked")
	}

	user, err := c.db.Users().Get(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: load user: %w", err)
	}
	if !user.IsActive() {
		return nil, nil, apierr.AccountDisabled()
	}

	if err := c.db.RefreshTokens().Revoke(ctx, userID, hash); err != nil {
		return nil, nil, fmt.Errorf("auth: revoke used refresh token: %w", err)
	}

	tokens, err := c.issueTokenPair(ctx, user, rc)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Logout revokes a single session's refresh token.
func (c *Core) Logout(ctx context.Context, userID, refreshTokenPlaintext string, rc RequestContext) error {
	hash := hashRefreshToken(refreshTokenPlaintext)
	if err := c.db.RefreshTokens().Revoke(ctx, userID, hash); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("auth: revoke session: %w", err)
	}

	c.auditLog.LogLogout(ctx, audit.Actor{ID: userID, Type: "user", AuthMethod: string(AuthModeJWT)}, auditSource(rc), hash)
	return nil
}

// LogoutAll revokes every active refresh token for userID and invalidates
// any cached stream URLs, so a compromised account is fully cut off in one
// call.
func (c *Core) LogoutAll(ctx context.Context, userID string, rc RequestContext) error {
	active, err := c.db.RefreshTokens().ListActiveByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("auth: list active sessions: %w", err)
	}
	for _, tok := range active {
		if err := c.db.RefreshTokens().Revoke(ctx, userID, tok.TokenHash); err != nil {
			logging.Error().Err(err).Str("userId", userID).Msg("auth: revoke session during logout-all")
		}
	}

	c.invalidator.InvalidateAllForUser(ctx, userID)
	c.auditLog.LogLogout(ctx, audit.Actor{ID: userID, Type: "user", AuthMethod: string(AuthModeJWT)}, auditSource(rc), "all")
	return nil
}
