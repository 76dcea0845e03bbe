// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/goccy/go-json"

	"github.com/novatune/backend/internal/outbox"
)

const outboxEntity = "Outbox"

// outboxRecord is the item shape for a relayed outbox.Message. StatusBucket
// mirrors Status so Forwarder.GetPending can query status-createdAt-index
// instead of scanning the whole table on every poll tick.
type outboxRecord struct {
	PK            string          `dynamodbav:"pk"`
	SK            string          `dynamodbav:"sk"`
	StatusBucket  string          `dynamodbav:"statusBucket"`
	ID            string          `dynamodbav:"id"`
	Type          string          `dynamodbav:"type"`
	Topic         string          `dynamodbav:"topic"`
	PartitionKey  string          `dynamodbav:"partitionKey,omitempty"`
	Payload       []byte          `dynamodbav:"payload"`
	CorrelationID string          `dynamodbav:"correlationId"`
	Status        outbox.Status   `dynamodbav:"status"`
	Attempts      int             `dynamodbav:"attempts"`
	LastError     string          `dynamodbav:"lastError,omitempty"`
	CreatedAt     time.Time       `dynamodbav:"createdAt"`
	PublishedAt   *time.Time      `dynamodbav:"publishedAt,omitempty"`
}

func toOutboxRecord(m *outbox.Message) *outboxRecord {
	return &outboxRecord{
		PK:            pk(outboxEntity, m.ID),
		SK:            metaSK,
		StatusBucket:  string(m.Status),
		ID:            m.ID,
		Type:          m.Type,
		Topic:         m.Topic,
		PartitionKey:  m.PartitionKey,
		Payload:       m.Payload,
		CorrelationID: m.CorrelationID,
		Status:        m.Status,
		Attempts:      m.Attempts,
		LastError:     m.LastError,
		CreatedAt:     m.CreatedAt,
		PublishedAt:   m.PublishedAt,
	}
}

func (r *outboxRecord) toMessage() *outbox.Message {
	return &outbox.Message{
		ID:            r.ID,
		Type:          r.Type,
		Topic:         r.Topic,
		PartitionKey:  r.PartitionKey,
		Payload:       json.RawMessage(r.Payload),
		CorrelationID: r.CorrelationID,
		Status:        r.Status,
		Attempts:      r.Attempts,
		LastError:     r.LastError,
		CreatedAt:     r.CreatedAt,
		PublishedAt:   r.PublishedAt,
	}
}

// OutboxStore is a DynamoDB-backed outbox.Store, sharing the application
// table with every other entity. Its bare Append has no paired domain write
// to land atomically with (the forwarder's own bookkeeping has none); core
// services that create or mutate a domain row alongside an outbox message
// instead go through a Tracks.*WithOutbox method (transact.go), which puts
// both in one TransactWriteItems call.
type OutboxStore struct{ c *Client }

// NewOutboxStore constructs an OutboxStore bound to c's table.
func NewOutboxStore(c *Client) *OutboxStore { return &OutboxStore{c: c} }

var _ outbox.Store = (*OutboxStore)(nil)

// Append persists a new pending outbox row on its own, with no paired
// domain write. Prefer a Tracks.*WithOutbox transaction when one exists.
func (s *OutboxStore) Append(ctx context.Context, msg *outbox.Message) error {
	return s.c.putNew(ctx, toOutboxRecord(msg))
}

// GetPending returns up to limit pending messages, oldest first, via
// status-createdAt-index.
func (s *OutboxStore) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	var out []*outbox.Message
	err := s.c.queryIndex(ctx, "status-createdAt-index", "statusBucket = :s",
		map[string]types.AttributeValue{":s": &types.AttributeValueMemberS{Value: string(outbox.StatusPending)}},
		true, int32(limit),
		func(items []map[string]types.AttributeValue) error {
			for _, item := range items {
				var rec outboxRecord
				if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
					return fmt.Errorf("docstore: unmarshal outbox message: %w", err)
				}
				out = append(out, rec.toMessage())
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkPublished flips a message to Published.
func (s *OutboxStore) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	return s.updateStatus(ctx, id, outbox.StatusPublished, publishedAt, "", 0)
}

// MarkFailed records a failed publish attempt, bumping Attempts and storing
// lastErr. attempts is the new total attempt count.
func (s *OutboxStore) MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error {
	return s.updateStatus(ctx, id, outbox.StatusFailed, time.Time{}, lastErr, attempts)
}

func (s *OutboxStore) updateStatus(ctx context.Context, id string, status outbox.Status, publishedAt time.Time, lastErr string, attempts int) error {
	var rec outboxRecord
	if err := s.c.getItem(ctx, pk(outboxEntity, id), metaSK, &rec); err != nil {
		return fmt.Errorf("docstore: load outbox message %s: %w", id, err)
	}
	rec.Status = status
	rec.StatusBucket = string(status)
	if attempts > 0 {
		rec.Attempts = attempts
	}
	if lastErr != "" {
		rec.LastError = lastErr
	}
	if !publishedAt.IsZero() {
		t := publishedAt
		rec.PublishedAt = &t
	}
	if err := s.c.put(ctx, &rec); err != nil {
		return fmt.Errorf("docstore: update outbox message %s: %w", id, err)
	}
	return nil
}
