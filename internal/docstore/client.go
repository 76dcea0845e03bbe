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
)

// ErrNotFound is returned when a Get targets a row that does not exist.
var ErrNotFound = errors.New("docstore: item not found")

// ErrConcurrency is returned when a conditional write loses a race —
// callers translate this into the operation-specific *Concurrency apierr
// variant (TrackConcurrency, PlaylistConcurrency, ...).
var ErrConcurrency = errors.New("docstore: conditional write failed")

// Client wraps a dynamodb.Client bound to the single application table.
// Entity-specific files (users.go, tracks.go, ...) are thin typed layers
// over the helpers here.
type Client struct {
	db    *dynamodb.Client
	table string
}

// NewClient constructs a Client bound to tableName.
func NewClient(db *dynamodb.Client, tableName string) *Client {
	return &Client{db: db, table: tableName}
}

// Ping verifies the backing table is reachable, for use by readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(c.table)})
	return err
}

func pk(entityType, id string) string {
	return fmt.Sprintf("%s#%s", entityType, id)
}

const metaSK = "META"

// putNew marshals item and writes it with attribute_not_exists(pk) so a
// second Initiate/Create for the same id never clobbers an existing row.
func (c *Client) putNew(ctx context.Context, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("docstore: marshal: %w", err)
	}
	_, err = c.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrency
		}
		return fmt.Errorf("docstore: put: %w", err)
	}
	return nil
}

// putVersioned overwrites an existing row, requiring the stored version to
// equal expectedVersion. item must already carry the incremented version.
func (c *Client) putVersioned(ctx context.Context, item any, expectedVersion int) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("docstore: marshal: %w", err)
	}
	_, err = c.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.table),
		Item:                av,
		ConditionExpression: aws.String("version = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion)},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrency
		}
		return fmt.Errorf("docstore: put: %w", err)
	}
	return nil
}

// put overwrites a row unconditionally (used for idempotent/background
// writers such as the telemetry aggregator that have no concurrency story).
func (c *Client) put(ctx context.Context, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("docstore: marshal: %w", err)
	}
	_, err = c.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("docstore: put: %w", err)
	}
	return nil
}

// getItem fetches a single row by pk/sk into dst. Returns ErrNotFound if absent.
func (c *Client) getItem(ctx context.Context, partitionKey, sortKey string, dst any) error {
	out, err := c.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: partitionKey},
			"sk": &types.AttributeValueMemberS{Value: sortKey},
		},
	})
	if err != nil {
		return fmt.Errorf("docstore: get: %w", err)
	}
	if out.Item == nil {
		return ErrNotFound
	}
	if err := attributevalue.UnmarshalMap(out.Item, dst); err != nil {
		return fmt.Errorf("docstore: unmarshal: %w", err)
	}
	return nil
}

// deleteItem removes a row unconditionally.
func (c *Client) deleteItem(ctx context.Context, partitionKey, sortKey string) error {
	_, err := c.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: partitionKey},
			"sk": &types.AttributeValueMemberS{Value: sortKey},
		},
	})
	if err != nil {
		return fmt.Errorf("docstore: delete: %w", err)
	}
	return nil
}

// queryIndex runs a Query against a GSI with keyCondition, a partition-key
// equality that callers may extend with a sort-key range (e.g. status +
// expiresAt) using values. It pages through every page when limit is 0;
// with limit > 0 only the first page is read.
func (c *Client) queryIndex(ctx context.Context, indexName, keyCondition string, values map[string]types.AttributeValue, scanForward bool, limit int32, unmarshalInto func(items []map[string]types.AttributeValue) error) error {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(c.table),
		IndexName:                 aws.String(indexName),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(scanForward),
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	paginator := dynamodb.NewQueryPaginator(c.db, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("docstore: query %s: %w", indexName, err)
		}
		if err := unmarshalInto(page.Items); err != nil {
			return err
		}
		if limit > 0 {
			break // caller's limit is a page-level cap; one page is enough for our access patterns
		}
	}
	return nil
}

// scanAll pages through the whole table (or, with a FilterExpression, a
// filtered subset). Used by the access patterns that have no dedicated
// index: track and user listing and search candidates, playlist-by-track
// reference, and the aggregate range reports.
func (c *Client) scanAll(ctx context.Context, filterExpr string, values map[string]types.AttributeValue, unmarshalInto func(items []map[string]types.AttributeValue) error) error {
	input := &dynamodb.ScanInput{TableName: aws.String(c.table)}
	if filterExpr != "" {
		input.FilterExpression = aws.String(filterExpr)
		input.ExpressionAttributeValues = values
	}
	paginator := dynamodb.NewScanPaginator(c.db, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("docstore: scan: %w", err)
		}
		if err := unmarshalInto(page.Items); err != nil {
			return err
		}
	}
	return nil
}
