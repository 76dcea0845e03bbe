// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package docstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/novatune/backend/internal/domain"
)

const trackEntity = "Track"

// trackRecord is the item shape for domain.Track. UserID/CreatedAt are
// projected into UserIndex so a user's library can be listed newest-first
// without a scan; ScheduledDeletionAt is projected into
// ScheduledDeletionIndex for the lifecycle sweep.
type trackRecord struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
	// DeletionBucket is a constant partition key for ScheduledDeletionIndex,
	// set only on soft-deleted rows so the sweep's sparse index stays small;
	// every other row omits the attribute and is never projected.
	DeletionBucket string `dynamodbav:"deletionBucket,omitempty"`
	domain.Track
}

func toTrackRecord(t *domain.Track) *trackRecord {
	rec := &trackRecord{PK: pk(trackEntity, t.ID), SK: metaSK, Track: *t}
	if t.Status == domain.TrackStatusDeleted && t.ScheduledDeletionAt != nil {
		rec.DeletionBucket = "pending"
	}
	return rec
}

// Tracks exposes the Track access patterns.
type Tracks struct{ c *Client }

func (c *Client) Tracks() *Tracks { return &Tracks{c: c} }

// Create writes a brand new track row on its own, with no paired outbox
// append. The ingestor's upload-completion path uses CreateWithOutbox
// (transact.go) instead; this standalone Create exists for callers (tests,
// fixtures) that need a track row without an accompanying announcement.
func (t *Tracks) Create(ctx context.Context, track *domain.Track) error {
	return t.c.putNew(ctx, toTrackRecord(track))
}

// Get loads a track by id.
func (t *Tracks) Get(ctx context.Context, id string) (*domain.Track, error) {
	var rec trackRecord
	if err := t.c.getItem(ctx, pk(trackEntity, id), metaSK, &rec); err != nil {
		return nil, err
	}
	return &rec.Track, nil
}

// Update overwrites the track row under optimistic concurrency.
func (t *Tracks) Update(ctx context.Context, track *domain.Track, expectedVersion int) error {
	return t.c.putVersioned(ctx, toTrackRecord(track), expectedVersion)
}

// Delete removes the track row outright (admin hard delete, lifecycle sweep
// after the grace window). Soft-delete is expressed as an Update with
// Status=Deleted, not this method.
func (t *Tracks) Delete(ctx context.Context, id string) error {
	return t.c.deleteItem(ctx, pk(trackEntity, id), metaSK)
}

// TrackCursor is the resume position for ListByUser, wrapped in an opaque,
// expiring envelope by internal/track.
type TrackCursor struct {
	UserID    string `json:"userId"`
	CreatedAt string `json:"createdAt"`
	ID        string `json:"id"`
}

// ListByUser pages through a user's tracks newest first via UserIndex.
// after, when non-nil, resumes from the given cursor position.
func (t *Tracks) ListByUser(ctx context.Context, userID string, limit int32, after *TrackCursor) ([]*domain.Track, error) {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(t.c.table),
		IndexName:                 aws.String("UserIndex"),
		KeyConditionExpression:    aws.String("userId = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": &types.AttributeValueMemberS{Value: userID}},
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(limit),
	}
	if after != nil {
		input.ExclusiveStartKey = map[string]types.AttributeValue{
			"pk":        &types.AttributeValueMemberS{Value: pk(trackEntity, after.ID)},
			"sk":        &types.AttributeValueMemberS{Value: metaSK},
			"userId":    &types.AttributeValueMemberS{Value: after.UserID},
			"createdAt": &types.AttributeValueMemberS{Value: after.CreatedAt},
		}
	}

	out, err := t.c.db.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("docstore: list tracks by user: %w", err)
	}
	tracks := make([]*domain.Track, 0, len(out.Items))
	for _, item := range out.Items {
		var rec trackRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, fmt.Errorf("docstore: unmarshal track: %w", err)
		}
		trk := rec.Track
		tracks = append(tracks, &trk)
	}
	return tracks, nil
}

// ListScheduledForDeletion returns every track whose ScheduledDeletionAt has
// elapsed, for the lifecycle worker's sweep. Uses ScheduledDeletionIndex so
// the sweep touches only candidate rows, not the whole table.
func (t *Tracks) ListScheduledForDeletion(ctx context.Context, cutoffRFC3339 string) ([]*domain.Track, error) {
	var tracks []*domain.Track
	err := t.c.queryIndex(ctx, "ScheduledDeletionIndex", "deletionBucket = :b AND scheduledDeletionAt <= :cutoff",
		map[string]types.AttributeValue{
			":b":      &types.AttributeValueMemberS{Value: "pending"},
			":cutoff": &types.AttributeValueMemberS{Value: cutoffRFC3339},
		},
		true, 0,
		func(items []map[string]types.AttributeValue) error {
			for _, item := range items {
				var rec trackRecord
				if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
					return fmt.Errorf("docstore: unmarshal track: %w", err)
				}
				trk := rec.Track
				tracks = append(tracks, &trk)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

// ListAllForAdmin scans every track row regardless of owner or status, for
// the admin moderation listing. Unlike ScanCandidatesForSearch it does not
// filter by status, since admins must be able to find and act on tracks in
// any state.
func (t *Tracks) ListAllForAdmin(ctx context.Context, fn func(*domain.Track) bool) error {
	return t.c.scanAll(ctx, "begins_with(pk, :p) AND sk = :sk",
		map[string]types.AttributeValue{
			":p":  &types.AttributeValueMemberS{Value: trackEntity + "#"},
			":sk": &types.AttributeValueMemberS{Value: metaSK},
		},
		func(items []map[string]types.AttributeValue) error {
			for _, item := range items {
				var rec trackRecord
				if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
					return fmt.Errorf("docstore: unmarshal track: %w", err)
				}
				trk := rec.Track
				if !fn(&trk) {
					return nil
				}
			}
			return nil
		})
}

// ScanCandidatesForSearch pages through every Ready track, whatever its
// moderation status, so the
// in-process trigram filter (search.go) can rank them; see that file for why
// this table has no native full-text index.
func (t *Tracks) ScanCandidatesForSearch(ctx context.Context, fn func(*domain.Track) bool) error {
	return t.c.scanAll(ctx, "begins_with(pk, :p)",
		map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: trackEntity + "#"},
		},
		func(items []map[string]types.AttributeValue) error {
			for _, item := range items {
				var rec trackRecord
				if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
					return fmt.Errorf("docstore: unmarshal track: %w", err)
				}
				trk := rec.Track
				if trk.Status != domain.TrackStatusReady {
					continue
				}
				if !fn(&trk) {
					return nil
				}
			}
			return nil
		})
}
