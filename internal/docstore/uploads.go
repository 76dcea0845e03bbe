// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package docstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/novatune/backend/internal/domain"
)

const uploadSessionEntity = "UploadSession"

// uploadSessionRecord is the item shape for domain.UploadSession. The row is
// keyed by TrackID rather than the session's own ID: the ingestor's only
// lookup path is "object key contains trackId", so trackId doubling as the
// partition key avoids a dedicated by-track secondary index. StatusBucket
// mirrors Status so the sweep's status-expiresAt-index can find Pending
// sessions past ExpiresAt without scanning Completed ones.
type uploadSessionRecord struct {
	PK           string `dynamodbav:"pk"`
	SK           string `dynamodbav:"sk"`
	StatusBucket string `dynamodbav:"statusBucket"`
	domain.UploadSession
}

func toUploadSessionRecord(s *domain.UploadSession) *uploadSessionRecord {
	return &uploadSessionRecord{
		PK:           pk(uploadSessionEntity, s.TrackID),
		SK:           metaSK,
		StatusBucket: string(s.Status),
		UploadSession: *s,
	}
}

// UploadSessions exposes the UploadSession access patterns.
type UploadSessions struct{ c *Client }

func (c *Client) UploadSessions() *UploadSessions { return &UploadSessions{c: c} }

// Create reserves a new upload session (Upload.Initiate).
func (u *UploadSessions) Create(ctx context.Context, session *domain.UploadSession) error {
	return u.c.putNew(ctx, toUploadSessionRecord(session))
}

// GetByTrackID loads the session reserved for trackID — the ingestor's
// lookup path from an object-created notification's key.
func (u *UploadSessions) GetByTrackID(ctx context.Context, trackID string) (*domain.UploadSession, error) {
	var rec uploadSessionRecord
	if err := u.c.getItem(ctx, pk(uploadSessionEntity, trackID), metaSK, &rec); err != nil {
		return nil, err
	}
	return &rec.UploadSession, nil
}

// Update overwrites the session row (ingestor marking Completed/Failed, the
// sweep marking Expired). Sessions carry no version field: the ingestor and
// the sweep never race on the same session because the sweep only touches
// rows already past ExpiresAt.
func (u *UploadSessions) Update(ctx context.Context, session *domain.UploadSession) error {
	return u.c.put(ctx, toUploadSessionRecord(session))
}

// ListPendingBefore returns every Pending session whose ExpiresAt is at or
// before cutoffRFC3339, for Upload.Sweep to expire.
func (u *UploadSessions) ListPendingBefore(ctx context.Context, cutoffRFC3339 string) ([]*domain.UploadSession, error) {
	var sessions []*domain.UploadSession
	err := u.c.queryIndex(ctx, "status-expiresAt-index", "statusBucket = :s AND expiresAt <= :cutoff",
		map[string]types.AttributeValue{
			":s":      &types.AttributeValueMemberS{Value: string(domain.UploadStatusPending)},
			":cutoff": &types.AttributeValueMemberS{Value: cutoffRFC3339},
		},
		true, 0,
		func(items []map[string]types.AttributeValue) error {
			for _, item := range items {
				var rec uploadSessionRecord
				if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
					return fmt.Errorf("docstore: unmarshal upload session: %w", err)
				}
				s := rec.UploadSession
				sessions = append(sessions, &s)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
