// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/novatune/backend/internal/domain"
)

const (
	trackHourlyEntity = "TrackHourly"
	trackDailyEntity  = "TrackDaily"
	userActivityEntity = "UserActivity"

	// aggregateTTL bounds how long hourly/daily rollups live before DynamoDB's
	// TTL sweep reclaims them; dashboards only ever query the last 90 days.
	aggregateTTL = 90 * 24 * time.Hour
)

// Aggregates exposes atomic counter updates for the three telemetry rollup
// kinds. Every update is an UpdateItem ADD expression so concurrent workers
// processing different playback events for the same bucket never clobber
// each other's counts; no read-modify-write, no version field.
type Aggregates struct{ c *Client }

// Aggregates returns an Aggregates bound to c's table.
func (c *Client) Aggregates() *Aggregates { return &Aggregates{c: c} }

func bucketSK(bucket time.Time) string { return bucket.UTC().Format(time.RFC3339) }

// IncrementTrackHourly atomically adds playStarts/playCompletes/seconds to
// the hourly bucket for trackID, creating the row on first write.
func (a *Aggregates) IncrementTrackHourly(ctx context.Context, trackID string, hourBucket time.Time, playStarts, playCompletes int64, seconds float64, uniqueSessionDelta int64) error {
	return a.increment(ctx, pk(trackHourlyEntity, trackID), bucketSK(hourBucket), trackID, hourBucket, playStarts, playCompletes, seconds, uniqueSessionDelta)
}

// IncrementTrackDaily is the day-bucket counterpart of IncrementTrackHourly.
func (a *Aggregates) IncrementTrackDaily(ctx context.Context, trackID string, dayBucket time.Time, playStarts, playCompletes int64, seconds float64, uniqueSessionDelta int64) error {
	return a.increment(ctx, pk(trackDailyEntity, trackID), bucketSK(dayBucket), trackID, dayBucket, playStarts, playCompletes, seconds, uniqueSessionDelta)
}

func (a *Aggregates) increment(ctx context.Context, partitionKey, sortKey, trackID string, bucket time.Time, playStarts, playCompletes int64, seconds float64, uniqueSessionDelta int64) error {
	_, err := a.c.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(a.c.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: partitionKey},
			"sk": &types.AttributeValueMemberS{Value: sortKey},
		},
		UpdateExpression: aws.String("ADD playStartCount :ps, playCompleteCount :pc, totalSeconds :sec, uniqueSessionCount :usc SET trackId = :tid, bucket = :b, expiresAt = :ttl"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ps":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", playStarts)},
			":pc":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", playCompletes)},
			":sec": &types.AttributeValueMemberN{Value: fmt.Sprintf("%g", seconds)},
			":usc": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", uniqueSessionDelta)},
			":tid": &types.AttributeValueMemberS{Value: trackID},
			":b":   &types.AttributeValueMemberS{Value: bucket.UTC().Format(time.RFC3339)},
			":ttl": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", time.Now().UTC().Add(aggregateTTL).Unix())},
		},
	})
	if err != nil {
		return fmt.Errorf("docstore: increment aggregate: %w", err)
	}
	return nil
}

// IncrementUserActivity atomically rolls a playback event into the user's
// daily activity row.
func (a *Aggregates) IncrementUserActivity(ctx context.Context, userID string, dayBucket time.Time, uniqueTrackDelta, totalPlaysDelta int64, seconds float64, lastActivityAt time.Time) error {
	_, err := a.c.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(a.c.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk(userActivityEntity, userID)},
			"sk": &types.AttributeValueMemberS{Value: bucketSK(dayBucket)},
		},
		UpdateExpression: aws.String("ADD uniqueTracksPlayed :ut, totalPlays :tp, totalSeconds :sec SET userId = :uid, day = :d, lastActivityAt = :la, expiresAt = :ttl"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ut":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", uniqueTrackDelta)},
			":tp":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", totalPlaysDelta)},
			":sec": &types.AttributeValueMemberN{Value: fmt.Sprintf("%g", seconds)},
			":uid": &types.AttributeValueMemberS{Value: userID},
			":d":   &types.AttributeValueMemberS{Value: dayBucket.UTC().Format(time.RFC3339)},
			":la":  &types.AttributeValueMemberS{Value: lastActivityAt.UTC().Format(time.RFC3339)},
			":ttl": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", time.Now().UTC().Add(aggregateTTL).Unix())},
		},
	})
	if err != nil {
		return fmt.Errorf("docstore: increment user activity: %w", err)
	}
	return nil
}

// GetTrackHourly loads one hourly bucket, for admin analytics reads.
func (a *Aggregates) GetTrackHourly(ctx context.Context, trackID string, hourBucket time.Time) (*domain.TrackHourlyAggregate, error) {
	var agg domain.TrackHourlyAggregate
	if err := a.c.getItem(ctx, pk(trackHourlyEntity, trackID), bucketSK(hourBucket), &agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

// GetTrackDaily loads one daily bucket.
func (a *Aggregates) GetTrackDaily(ctx context.Context, trackID string, dayBucket time.Time) (*domain.TrackDailyAggregate, error) {
	var agg domain.TrackDailyAggregate
	if err := a.c.getItem(ctx, pk(trackDailyEntity, trackID), bucketSK(dayBucket), &agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

// ListTrackDailyInRange scans every TrackDaily bucket whose day falls within
// [from, to], across every track, for the admin "top tracks" report. A scan
// is acceptable here: this report runs on demand, not on a request path,
// and the 90-day TTL keeps the scanned set bounded.
func (a *Aggregates) ListTrackDailyInRange(ctx context.Context, from, to time.Time) ([]domain.TrackDailyAggregate, error) {
	var out []domain.TrackDailyAggregate
	err := a.c.scanAll(ctx, "begins_with(pk, :p)",
		map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: trackDailyEntity + "#"},
		},
		func(items []map[string]types.AttributeValue) error {
			for _, item := range items {
				var agg domain.TrackDailyAggregate
				if err := attributevalue.UnmarshalMap(item, &agg); err != nil {
					return fmt.Errorf("docstore: unmarshal track daily aggregate: %w", err)
				}
				if agg.Bucket.Before(from) || agg.Bucket.After(to) {
					continue
				}
				out = append(out, agg)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListUserActivityInRange scans every UserActivity bucket in [from, to],
// across every user, for the admin "active users" report. The day-range
// filter runs in process rather than as a DynamoDB FilterExpression since
// "day" collides with a DynamoDB reserved word.
func (a *Aggregates) ListUserActivityInRange(ctx context.Context, from, to time.Time) ([]domain.UserActivityAggregate, error) {
	var out []domain.UserActivityAggregate
	err := a.c.scanAll(ctx, "begins_with(pk, :p)",
		map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: userActivityEntity + "#"},
		},
		func(items []map[string]types.AttributeValue) error {
			for _, item := range items {
				var agg domain.UserActivityAggregate
				if err := attributevalue.UnmarshalMap(item, &agg); err != nil {
					return fmt.Errorf("docstore: unmarshal user activity aggregate: %w", err)
				}
				if agg.Day.Before(from) || agg.Day.After(to) {
					continue
				}
				out = append(out, agg)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}
