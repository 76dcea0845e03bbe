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

	"github.com/novatune/backend/internal/audit"
	"github.com/novatune/backend/internal/domain"
)

const auditLogEntity = "AuditLog"

// auditLogRecord keys every entry under a single constant partition so
// ListInOrder is one Query instead of a scan; the chain is expected to hold
// at most a few hundred thousand entries on a self-hosted deployment, well
// within a single partition's throughput budget.
type auditLogRecord struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"` // zero-padded timestamp + id, so SK order is chronological
	domain.AuditLogEntry
}

const auditLogPartition = "AuditLog#chain"

func toAuditLogRecord(e *domain.AuditLogEntry) *auditLogRecord {
	return &auditLogRecord{
		PK:            auditLogPartition,
		SK:            fmt.Sprintf("%s#%s", e.Timestamp.UTC().Format("20060102T150405.000000000Z"), e.ID),
		AuditLogEntry: *e,
	}
}

// DynamoChainStore is a DynamoDB-backed audit.ChainStore: the hash-chained
// admin audit trail persisted alongside every other entity in the
// application table.
type DynamoChainStore struct{ c *Client }

// NewDynamoChainStore constructs a DynamoChainStore bound to c's table.
func NewDynamoChainStore(c *Client) *DynamoChainStore { return &DynamoChainStore{c: c} }

var _ audit.ChainStore = (*DynamoChainStore)(nil)

// Append writes a new audit log row. Entries are immutable once written;
// nothing in this package ever issues an UpdateItem against auditLogEntity.
func (s *DynamoChainStore) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	return s.c.putNew(ctx, toAuditLogRecord(entry))
}

// Latest returns the most recently appended entry, or (nil, nil) if the
// chain is empty, matching MemoryChainStore's contract.
func (s *DynamoChainStore) Latest(ctx context.Context) (*domain.AuditLogEntry, error) {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.c.table),
		KeyConditionExpression:    aws.String("pk = :p"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":p": &types.AttributeValueMemberS{Value: auditLogPartition}},
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(1),
	}
	out, err := s.c.db.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("docstore: latest audit entry: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var rec auditLogRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("docstore: unmarshal audit entry: %w", err)
	}
	entry := rec.AuditLogEntry
	return &entry, nil
}

// ListInOrder returns every entry oldest first, for Chain.Verify to walk.
func (s *DynamoChainStore) ListInOrder(ctx context.Context) ([]domain.AuditLogEntry, error) {
	var entries []domain.AuditLogEntry
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.c.table),
		KeyConditionExpression:    aws.String("pk = :p"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":p": &types.AttributeValueMemberS{Value: auditLogPartition}},
		ScanIndexForward:          aws.Bool(true),
	}
	paginator := dynamodb.NewQueryPaginator(s.c.db, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("docstore: list audit entries: %w", err)
		}
		for _, item := range page.Items {
			var rec auditLogRecord
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				return nil, fmt.Errorf("docstore: unmarshal audit entry: %w", err)
			}
			entries = append(entries, rec.AuditLogEntry)
		}
	}
	return entries, nil
}
