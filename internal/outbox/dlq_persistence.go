// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package outbox: DLQ entries are persisted to DynamoDB so they survive
// worker restarts — the in-memory DLQHandler alone would lose pending
// retries on a crash.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/goccy/go-json"

	"github.com/novatune/backend/internal/bus"
	"github.com/novatune/backend/internal/logging"
)

// DLQStore defines the persistence contract for DLQ entries.
type DLQStore interface {
	// Save persists a DLQ entry, upserting on MessageID.
	Save(ctx context.Context, entry *DLQEntry) error

	// Get retrieves an entry by message id.
	Get(ctx context.Context, messageID string) (*DLQEntry, error)

	// Update modifies an existing entry (retry count, timestamps, etc.).
	Update(ctx context.Context, entry *DLQEntry) error

	// Delete removes an entry by message id.
	Delete(ctx context.Context, messageID string) error

	// List returns all entries, for recovery on startup.
	List(ctx context.Context) ([]*DLQEntry, error)

	// DeleteExpired removes entries older than the given time.
	DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int64, error)
}

// dynamoDLQRecord is the DynamoDB item shape for a DLQEntry.
type dynamoDLQRecord struct {
	MessageID     string `dynamodbav:"messageId"`
	EnvelopeJSON  string `dynamodbav:"envelopeJson"`
	OriginalError string `dynamodbav:"originalError"`
	LastError     string `dynamodbav:"lastError"`
	RetryCount    int    `dynamodbav:"retryCount"`
	FirstFailure  int64  `dynamodbav:"firstFailure"`
	LastFailure   int64  `dynamodbav:"lastFailure"`
	NextRetry     int64  `dynamodbav:"nextRetry"`
	Category      int    `dynamodbav:"category"`
}

// DynamoDLQStore implements DLQStore on top of a DynamoDB table keyed by
// messageId (partition key). Table creation is an operator/infra concern,
// not this package's.
type DynamoDLQStore struct {
	client    *dynamodb.Client
	tableName string
}

// NewDynamoDLQStore creates a DynamoDB-backed DLQ store.
func NewDynamoDLQStore(client *dynamodb.Client, tableName string) *DynamoDLQStore {
	return &DynamoDLQStore{client: client, tableName: tableName}
}

func toRecord(entry *DLQEntry) (*dynamoDLQRecord, error) {
	if entry == nil || entry.Envelope == nil {
		return nil, errors.New("entry and envelope cannot be nil")
	}
	envData, err := json.Marshal(entry.Envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return &dynamoDLQRecord{
		MessageID:     entry.Envelope.MessageID,
		EnvelopeJSON:  string(envData),
		OriginalError: entry.OriginalError,
		LastError:     entry.LastError,
		RetryCount:    entry.RetryCount,
		FirstFailure:  entry.FirstFailure.UnixMilli(),
		LastFailure:   entry.LastFailure.UnixMilli(),
		NextRetry:     entry.NextRetry.UnixMilli(),
		Category:      int(entry.Category),
	}, nil
}

func fromRecord(rec *dynamoDLQRecord) (*DLQEntry, error) {
	var env bus.Envelope
	if err := json.Unmarshal([]byte(rec.EnvelopeJSON), &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &DLQEntry{
		Envelope:      &env,
		MessageID:     rec.MessageID,
		OriginalError: rec.OriginalError,
		LastError:     rec.LastError,
		RetryCount:    rec.RetryCount,
		FirstFailure:  time.UnixMilli(rec.FirstFailure).UTC(),
		LastFailure:   time.UnixMilli(rec.LastFailure).UTC(),
		NextRetry:     time.UnixMilli(rec.NextRetry).UTC(),
		Category:      ErrorCategory(rec.Category),
	}, nil
}

// Save upserts a DLQ entry.
func (s *DynamoDLQStore) Save(ctx context.Context, entry *DLQEntry) error {
	rec, err := toRecord(entry)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal DLQ record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put DLQ entry: %w", err)
	}
	return nil
}

// Get retrieves a DLQ entry by message id.
func (s *DynamoDLQStore) Get(ctx context.Context, messageID string) (*DLQEntry, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"messageId": &types.AttributeValueMemberS{Value: messageID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get DLQ entry: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var rec dynamoDLQRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal DLQ record: %w", err)
	}
	return fromRecord(&rec)
}

// Update modifies an existing DLQ entry. Equivalent to Save; DynamoDB's
// PutItem is already an upsert.
func (s *DynamoDLQStore) Update(ctx context.Context, entry *DLQEntry) error {
	return s.Save(ctx, entry)
}

// Delete removes a DLQ entry by message id.
func (s *DynamoDLQStore) Delete(ctx context.Context, messageID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"messageId": &types.AttributeValueMemberS{Value: messageID},
		},
	})
	if err != nil {
		return fmt.Errorf("delete DLQ entry: %w", err)
	}
	return nil
}

// List scans and returns all DLQ entries, for recovery on startup.
func (s *DynamoDLQStore) List(ctx context.Context) ([]*DLQEntry, error) {
	var entries []*DLQEntry

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.tableName),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan DLQ entries: %w", err)
		}

		for _, item := range page.Items {
			var rec dynamoDLQRecord
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				logging.Warn().Err(err).Msg("failed to unmarshal DLQ record during scan")
				continue
			}
			entry, err := fromRecord(&rec)
			if err != nil {
				logging.Warn().Err(err).Msg("failed to decode DLQ entry during scan")
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// DeleteExpired removes entries with FirstFailure older than the cutoff.
// DynamoDB has no range delete, so this scans then issues individual
// deletes; acceptable given Cleanup runs on an infrequent schedule.
func (s *DynamoDLQStore) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, entry := range entries {
		if entry.FirstFailure.Before(olderThan) {
			if err := s.Delete(ctx, entry.Envelope.MessageID); err != nil {
				return deleted, err
			}
			deleted++
		}
	}

	if deleted > 0 {
		logging.Info().Int64("deleted", deleted).Time("older_than", olderThan).
			Msg("deleted expired DLQ entries")
	}

	return deleted, nil
}

// Count returns the total number of DLQ entries via a scan.
func (s *DynamoDLQStore) Count(ctx context.Context) (int64, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(entries)), nil
}

// PersistentDLQHandler wraps DLQHandler with persistence support,
// maintaining in-memory state for fast lookups while persisting to
// DynamoDB in the background.
type PersistentDLQHandler struct {
	*DLQHandler
	store DLQStore
}

// NewPersistentDLQHandler creates a DLQ handler with persistence and loads
// any entries left over from a prior run.
func NewPersistentDLQHandler(cfg DLQConfig, store DLQStore) (*PersistentDLQHandler, error) {
	handler, err := NewDLQHandler(cfg)
	if err != nil {
		return nil, err
	}

	pHandler := &PersistentDLQHandler{DLQHandler: handler, store: store}

	if err := pHandler.loadPersistedEntries(); err != nil {
		logging.Warn().Err(err).Msg("failed to load persisted DLQ entries")
	}

	return pHandler, nil
}

func (h *PersistentDLQHandler) loadPersistedEntries() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := h.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list persisted entries: %w", err)
	}

	h.mu.Lock()
	for _, entry := range entries {
		h.entries[entry.Envelope.MessageID] = entry
	}
	h.mu.Unlock()

	if len(entries) > 0 {
		logging.Info().Int("count", len(entries)).Msg("loaded DLQ entries from persistent storage")
	}

	return nil
}

// AddEntry adds a failed envelope to both memory and persistent storage.
func (h *PersistentDLQHandler) AddEntry(env *bus.Envelope, err error, messageID string) *DLQEntry {
	entry := h.DLQHandler.AddEntry(env, err, messageID)
	if entry == nil {
		return nil
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if saveErr := h.store.Save(ctx, entry); saveErr != nil {
			logging.Error().Err(saveErr).Str("message_id", env.MessageID).
				Msg("failed to persist DLQ entry")
		}
	}()

	return entry
}

// IncrementRetry updates retry count in both memory and persistent storage.
func (h *PersistentDLQHandler) IncrementRetry(messageID string, err error) bool {
	moreRetries := h.DLQHandler.IncrementRetry(messageID, err)

	entry := h.GetEntry(messageID)
	if entry != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if updateErr := h.store.Update(ctx, entry); updateErr != nil {
				logging.Error().Err(updateErr).Str("message_id", messageID).
					Msg("failed to persist DLQ retry update")
			}
		}()
	}

	return moreRetries
}

// RemoveEntry removes from both memory and persistent storage.
func (h *PersistentDLQHandler) RemoveEntry(messageID string) bool {
	removed := h.DLQHandler.RemoveEntry(messageID)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if deleteErr := h.store.Delete(ctx, messageID); deleteErr != nil {
			logging.Error().Err(deleteErr).Str("message_id", messageID).
				Msg("failed to delete persisted DLQ entry")
		}
	}()

	return removed
}

// Cleanup removes expired entries from both memory and persistent storage.
func (h *PersistentDLQHandler) Cleanup() int {
	count := h.DLQHandler.Cleanup()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cutoff := time.Now().Add(-h.config.RetentionTime)
		if _, deleteErr := h.store.DeleteExpired(ctx, cutoff); deleteErr != nil {
			logging.Error().Err(deleteErr).Msg("failed to cleanup persisted DLQ entries")
		}
	}()

	return count
}
