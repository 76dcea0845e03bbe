// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package domain

import "time"

// AuditAction enumerates the admin mutations that append an AuditLogEntry.
// Reasons are validated against this closed set by internal/admin.
type AuditAction string

const (
	AuditActionUserStatusChanged  AuditAction = "user.status_changed"
	AuditActionTrackModerated     AuditAction = "track.moderated"
	AuditActionTrackDeletedByAdmin AuditAction = "track.deleted_by_admin"
)

// AuditTargetType is the kind of entity an AuditLogEntry acted upon.
type AuditTargetType string

const (
	AuditTargetUser  AuditTargetType = "user"
	AuditTargetTrack AuditTargetType = "track"
)

// AuditLogEntry is one row in the append-only, hash-chained admin audit
// trail. previousEntryHash/contentHash form the chain verified by
// internal/audit's Chain.Verify; see Chain.Append for how entries are linked.
type AuditLogEntry struct {
	ID                string          `json:"id" dynamodbav:"id"`
	ActorUserID        string          `json:"actorUserId" dynamodbav:"actorUserId"`
	ActorEmail         string          `json:"actorEmail" dynamodbav:"actorEmail"` // denormalized at write time
	Action            AuditAction     `json:"action" dynamodbav:"action"`
	TargetType        AuditTargetType `json:"targetType" dynamodbav:"targetType"`
	TargetID          string          `json:"targetId" dynamodbav:"targetId"`
	ReasonCode        string          `json:"reasonCode" dynamodbav:"reasonCode"`
	Reason            string          `json:"reason,omitempty" dynamodbav:"reason,omitempty"`
	PreviousStateJSON []byte          `json:"previousState,omitempty" dynamodbav:"previousState,omitempty"`
	NewStateJSON      []byte          `json:"newState,omitempty" dynamodbav:"newState,omitempty"`
	Timestamp         time.Time       `json:"timestamp" dynamodbav:"timestamp"`
	CorrelationID     string          `json:"correlationId" dynamodbav:"correlationId"`
	ClientIP          string          `json:"clientIp" dynamodbav:"clientIp"`
	UserAgent         string          `json:"userAgent" dynamodbav:"userAgent"`
	PreviousEntryHash string          `json:"previousEntryHash" dynamodbav:"previousEntryHash"`
	ContentHash       string          `json:"contentHash" dynamodbav:"contentHash"`
}
