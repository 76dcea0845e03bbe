// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/novatune/backend/internal/domain"
	"github.com/novatune/backend/internal/outbox"
)

// transactItem is one Put within a TransactWriteItems call.
type transactItem struct {
	item                any
	conditionExpression string
	conditionValues     map[string]types.AttributeValue
}

// newItem builds an unconditional put (used for rows with no concurrency
// story, e.g. upload sessions).
func newItem(item any) transactItem {
	return transactItem{item: item}
}

// newItemIfAbsent builds a put that fails the whole transaction if the row
// already exists, mirroring putNew's attribute_not_exists(pk) guard.
func newItemIfAbsent(item any) transactItem {
	return transactItem{item: item, conditionExpression: "attribute_not_exists(pk)"}
}

// newItemVersioned builds a put that fails the whole transaction if the
// stored row's version has moved on, mirroring putVersioned.
func newItemVersioned(item any, expectedVersion int) transactItem {
	return transactItem{
		item:                item,
		conditionExpression: "version = :v",
		conditionValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion)},
		},
	}
}

// transactWrite commits every item in a single all-or-nothing
// TransactWriteItems call. A condition failure on any item (including one
// lost optimistic-concurrency race) aborts all of them and surfaces as
// ErrConcurrency, so callers can retry the whole unit of work without
// worrying about partially-applied writes.
func (c *Client) transactWrite(ctx context.Context, items ...transactItem) error {
	writeItems := make([]types.TransactWriteItem, 0, len(items))
	for _, it := range items {
		av, err := attributevalue.MarshalMap(it.item)
		if err != nil {
			return fmt.Errorf("docstore: marshal: %w", err)
		}
		put := &types.Put{
			TableName: aws.String(c.table),
			Item:      av,
		}
		if it.conditionExpression != "" {
			put.ConditionExpression = aws.String(it.conditionExpression)
			put.ExpressionAttributeValues = it.conditionValues
		}
		writeItems = append(writeItems, types.TransactWriteItem{Put: put})
	}

	_, err := c.db.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writeItems,
	})
	if err != nil {
		var condErr *types.TransactionCanceledException
		if errors.As(err, &condErr) {
			return ErrConcurrency
		}
		return fmt.Errorf("docstore: transact write: %w", err)
	}
	return nil
}

// CreateWithOutbox atomically creates the track row, marks the reserving
// upload session Completed, applies the owning user's usage-counter delta,
// and appends the AudioUploaded outbox announcement — ingestor step 5's
// "single document-store transaction" (spec §4.5 step 5). user must already
// carry the incremented counters and version; expectedUserVersion is the
// version the caller read user at, for the optimistic-concurrency condition.
// A lost race on the user counter returns ErrConcurrency so the caller can
// reload the user and retry the whole transaction — track creation and the
// outbox append never partially land.
func (t *Tracks) CreateWithOutbox(ctx context.Context, track *domain.Track, session *domain.UploadSession, user *domain.User, expectedUserVersion int, msg *outbox.Message) error {
	return t.c.transactWrite(ctx,
		newItemIfAbsent(toTrackRecord(track)),
		newItem(toUploadSessionRecord(session)),
		newItemVersioned(toUserRecord(user), expectedUserVersion),
		newItemIfAbsent(toOutboxRecord(msg)),
	)
}

// UpdateWithOutbox atomically overwrites the track row under optimistic
// concurrency and appends an outbox message in the same unit of work, for
// mutations (soft delete) that must never let the domain write land without
// its announcement or vice versa.
func (t *Tracks) UpdateWithOutbox(ctx context.Context, track *domain.Track, expectedVersion int, msg *outbox.Message) error {
	return t.c.transactWrite(ctx,
		newItemVersioned(toTrackRecord(track), expectedVersion),
		newItemIfAbsent(toOutboxRecord(msg)),
	)
}
