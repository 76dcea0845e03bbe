// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package admin

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/novatune/backend/internal/apierr"
	"github.com/novatune/backend/internal/audit"
	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/docstore"
	"github.com/novatune/backend/internal/domain"
	"github.com/novatune/backend/internal/logging"
)

// TrackDeleter is the subset of track.Core the admin core depends on for
// delete-track-as-admin and for the Removed moderation outcome, which
// triggers the same grace-period soft-delete flow an owner-initiated
// delete does.
type TrackDeleter interface {
	Delete(ctx context.Context, trackID, callerID string, isAdmin bool, gracePeriod time.Duration) error
}

// Invalidator is the subset of streaming.Invalidator the admin core depends
// on so a moderation change that flips a track's streamability takes
// effect immediately rather than waiting out the stream-URL cache TTL.
type Invalidator interface {
	InvalidateTrack(ctx context.Context, userID, trackID string)
}

// ModerationReasonCode is a closed set of reasons a moderation action may
// be taken for. admin.Core rejects any other value.
type ModerationReasonCode string

const (
	ModerationReasonCopyright       ModerationReasonCode = "copyright"
	ModerationReasonAbuse           ModerationReasonCode = "abuse"
	ModerationReasonIllegalContent  ModerationReasonCode = "illegal_content"
	ModerationReasonTermsViolation  ModerationReasonCode = "terms_violation"
	ModerationReasonFalsePositive   ModerationReasonCode = "false_positive" // reinstating a previously moderated track
	ModerationReasonOther           ModerationReasonCode = "other"
)

func validModerationReasonCode(code ModerationReasonCode) bool {
	switch code {
	case ModerationReasonCopyright, ModerationReasonAbuse, ModerationReasonIllegalContent,
		ModerationReasonTermsViolation, ModerationReasonFalsePositive, ModerationReasonOther:
		return true
	default:
		return false
	}
}

// Core implements the admin core: user/track listing, user status changes,
// track moderation, analytics reads, and audit log access.
type Core struct {
	db                  *docstore.Client
	tracks              TrackDeleter
	invalidator         Invalidator
	chain               *audit.Chain
	chainStore          audit.ChainStore
	cfg                 config.AdminConfig
	deletionGracePeriod time.Duration
}

// NewCore wires a Core from its dependencies. deletionGracePeriod is the
// same grace window track.Core.Delete uses for an owner-initiated delete
// (config.LifecycleConfig.DeletionGracePeriod), threaded through here so a
// Removed moderation verdict ages out on the same schedule.
func NewCore(db *docstore.Client, tracks TrackDeleter, invalidator Invalidator, chainStore audit.ChainStore, cfg config.AdminConfig, deletionGracePeriod time.Duration) *Core {
	return &Core{
		db:                  db,
		tracks:              tracks,
		invalidator:         invalidator,
		chain:               audit.NewChain(chainStore),
		chainStore:          chainStore,
		cfg:                 cfg,
		deletionGracePeriod: deletionGracePeriod,
	}
}

// ListAudit returns every audit entry in timestamp order, for the admin
// audit-access endpoint.
func (c *Core) ListAudit(ctx context.Context) ([]domain.AuditLogEntry, error) {
	return c.chainStore.ListInOrder(ctx)
}

// VerifyAudit walks the full chain and reports any entry whose hash no
// longer matches its content or its predecessor's content hash.
func (c *Core) VerifyAudit(ctx context.Context) (*audit.VerifyResult, error) {
	return c.chain.Verify(ctx)
}

func (c *Core) pageSize(limit int32) int32 {
	if limit <= 0 {
		limit = c.cfg.DefaultPageSize
	}
	if limit > c.cfg.MaxPageSize {
		limit = c.cfg.MaxPageSize
	}
	return limit
}

// ListUsers returns every user matching search (trigram full-text over
// email and display name), or the first page of all users when search is
// empty, capped at the configured page size.
func (c *Core) ListUsers(ctx context.Context, search string, limit int32) ([]*domain.User, error) {
	n := c.pageSize(limit)
	if strings.TrimSpace(search) != "" {
		return c.db.SearchUsers(ctx, search, int(n))
	}
	all, err := c.db.Users().ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if int32(len(all)) > n {
		all = all[:n]
	}
	return all, nil
}

// GetUser loads a single user by id.
func (c *Core) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := c.db.Users().Get(ctx, userID)
	if err != nil {
		if err == docstore.ErrNotFound {
			return nil, apierr.NotFound(apierr.CodeUserNotFound, "user not found")
		}
		return nil, err
	}
	return u, nil
}

func validUserStatus(status domain.UserStatus) bool {
	switch status {
	case domain.UserStatusActive, domain.UserStatusDisabled, domain.UserStatusPendingDeletion:
		return true
	default:
		return false
	}
}

// UpdateUserStatusRequest is the input to UpdateUserStatus.
type UpdateUserStatusRequest struct {
	Status     domain.UserStatus
	ReasonCode string
}

// UpdateUserStatus changes a user's status, forbidding an admin from
// targeting their own account (so an admin can never lock themselves out
// or otherwise self-exempt from moderation), and appends an audit entry.
func (c *Core) UpdateUserStatus(ctx context.Context, actorID, actorEmail, targetUserID string, req UpdateUserStatusRequest) (*domain.User, error) {
	if actorID == targetUserID {
		return nil, apierr.AccessDenied("an admin cannot change their own account status")
	}
	if !validUserStatus(req.Status) {
		return nil, apierr.Validation(apierr.CodeInvalidUserStatus, "unknown user status")
	}

	u, err := c.GetUser(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	previous, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}

	expected := u.Version
	u.Status = req.Status
	u.Version = expected + 1
	if err := c.db.Users().Update(ctx, u, expected); err != nil {
		if err == docstore.ErrConcurrency {
			return nil, apierr.Conflict(apierr.CodeUserConcurrency, "user was modified concurrently, retry")
		}
		return nil, err
	}

	next, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	c.appendAudit(ctx, actorID, actorEmail, domain.AuditActionUserStatusChanged, domain.AuditTargetUser, targetUserID, req.ReasonCode, "", previous, next)

	return u, nil
}

// ListTracks returns every track matching search across every owner and
// every status, or the first page of all tracks when search is empty.
func (c *Core) ListTracks(ctx context.Context, search string, limit int32) ([]*domain.Track, error) {
	n := c.pageSize(limit)
	if strings.TrimSpace(search) != "" {
		return c.db.SearchTracksForAdmin(ctx, search, int(n))
	}
	var out []*domain.Track
	err := c.db.Tracks().ListAllForAdmin(ctx, func(t *domain.Track) bool {
		out = append(out, t)
		return int32(len(out)) < n
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetTrack loads a single track by id, regardless of status or owner.
func (c *Core) GetTrack(ctx context.Context, trackID string) (*domain.Track, error) {
	t, err := c.db.Tracks().Get(ctx, trackID)
	if err != nil {
		if err == docstore.ErrNotFound {
			return nil, apierr.NotFound(apierr.CodeTrackNotFound, "track not found")
		}
		return nil, err
	}
	return t, nil
}

// ModerateTrackRequest is the input to ModerateTrack.
type ModerateTrackRequest struct {
	Status     domain.ModerationStatus
	ReasonCode ModerationReasonCode
	Reason     string
}

// ModerateTrack sets a track's moderation status and reason, invalidating
// its cached stream URL if the change flips streamability, and appends an
// audit entry. A Removed verdict additionally starts the same grace-period
// soft-delete flow an owner-initiated delete uses, so the track's audio and
// waveform objects age out on the lifecycle sweep's regular schedule
// instead of needing a separate purge path.
func (c *Core) ModerateTrack(ctx context.Context, actorID, actorEmail, trackID string, req ModerateTrackRequest) (*domain.Track, error) {
	if !validModerationReasonCode(req.ReasonCode) {
		return nil, apierr.Validation(apierr.CodeInvalidModerationReason, "unknown moderation reason code")
	}

	t, err := c.GetTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}

	previous, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	wasStreamable := t.Streamable()

	expected := t.Version
	t.ModerationStatus = req.Status
	t.ModerationReason = req.Reason
	t.Version = expected + 1
	if err := c.db.Tracks().Update(ctx, t, expected); err != nil {
		if err == docstore.ErrConcurrency {
			return nil, apierr.Conflict(apierr.CodeTrackConcurrency, "track was modified concurrently, retry")
		}
		return nil, err
	}

	if wasStreamable != t.Streamable() {
		c.invalidator.InvalidateTrack(ctx, t.UserID, t.ID)
	}

	if req.Status == domain.ModerationRemoved {
		if err := c.tracks.Delete(ctx, trackID, actorID, true, c.deletionGracePeriod); err != nil {
			return nil, err
		}
	}

	next, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	c.appendAudit(ctx, actorID, actorEmail, domain.AuditActionTrackModerated, domain.AuditTargetTrack, trackID, string(req.ReasonCode), req.Reason, previous, next)

	return t, nil
}

// DeleteTrack hard-initiates the owner soft-delete path on trackID as an
// admin, bypassing ownership checks, and appends an audit entry.
func (c *Core) DeleteTrack(ctx context.Context, actorID, actorEmail, trackID string) error {
	t, err := c.GetTrack(ctx, trackID)
	if err != nil {
		return err
	}
	if err := c.tracks.Delete(ctx, trackID, actorID, true, c.deletionGracePeriod); err != nil {
		return err
	}
	c.appendAudit(ctx, actorID, actorEmail, domain.AuditActionTrackDeletedByAdmin, domain.AuditTargetTrack, trackID, "", "", nil, mustMarshal(t))
	return nil
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// appendAudit builds and appends one hash-chained audit entry, logging
// rather than failing the caller's mutation if the append itself errors:
// the mutation already committed, and a broken audit chain is visible to
// Verify and should be investigated, not retried by re-running the
// mutation.
func (c *Core) appendAudit(ctx context.Context, actorID, actorEmail string, action domain.AuditAction, targetType domain.AuditTargetType, targetID, reasonCode, reason string, previousState, newState []byte) {
	entry := &domain.AuditLogEntry{
		ID:                domain.NewID(),
		ActorUserID:       actorID,
		ActorEmail:        actorEmail,
		Action:            action,
		TargetType:        targetType,
		TargetID:          targetID,
		ReasonCode:        reasonCode,
		Reason:            reason,
		PreviousStateJSON: previousState,
		NewStateJSON:      newState,
		Timestamp:         time.Now().UTC(),
	}
	if err := c.chain.Append(ctx, entry); err != nil {
		logging.Error().Err(err).Str("auditId", entry.ID).Str("action", string(action)).Str("targetId", targetID).
			Msg("admin: audit append failed, mutation already committed")
	}
}
