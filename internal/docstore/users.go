// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/novatune/backend/internal/domain"
)

const userEntity = "User"

// userRecord is the DynamoDB item shape for domain.User. EmailNormalized
// is projected into EmailIndex (PK=emailNormalized) so admission can check
// uniqueness with a single query instead of a scan.
type userRecord struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
	domain.User
}

func toUserRecord(u *domain.User) *userRecord {
	return &userRecord{PK: pk(userEntity, u.ID), SK: metaSK, User: *u}
}

// Users exposes the User access patterns.
type Users struct{ c *Client }

func (c *Client) Users() *Users { return &Users{c: c} }

// Create writes a new user row, failing with ErrConcurrency if the id is
// already taken (admission uses a fresh ULID so this only ever fires on a
// programming error, not a real race).
func (u *Users) Create(ctx context.Context, user *domain.User) error {
	return u.c.putNew(ctx, toUserRecord(user))
}

// Get loads a user by id.
func (u *Users) Get(ctx context.Context, id string) (*domain.User, error) {
	var rec userRecord
	if err := u.c.getItem(ctx, pk(userEntity, id), metaSK, &rec); err != nil {
		return nil, err
	}
	return &rec.User, nil
}

// GetByEmail looks up a user via EmailIndex. Returns ErrNotFound if no user
// holds that normalized email.
func (u *Users) GetByEmail(ctx context.Context, emailNormalized string) (*domain.User, error) {
	var found *domain.User
	err := u.c.queryIndex(ctx, "EmailIndex", "emailNormalized = :e",
		map[string]types.AttributeValue{":e": &types.AttributeValueMemberS{Value: emailNormalized}},
		true, 1,
		func(items []map[string]types.AttributeValue) error {
			for _, item := range items {
				var rec userRecord
				if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
					return fmt.Errorf("docstore: unmarshal user: %w", err)
				}
				u := rec.User
				found = &u
				return nil
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// ListAll scans every user row for the admin listing. Call sites cap the
// result themselves; a self-hosted deployment's user count is small enough
// that a full scan stays cheap, unlike the track table.
func (u *Users) ListAll(ctx context.Context) ([]*domain.User, error) {
	var out []*domain.User
	err := u.c.scanAll(ctx, "begins_with(pk, :p) AND sk = :sk",
		map[string]types.AttributeValue{
			":p":  &types.AttributeValueMemberS{Value: userEntity + "#"},
			":sk": &types.AttributeValueMemberS{Value: metaSK},
		},
		func(items []map[string]types.AttributeValue) error {
			for _, item := range items {
				var rec userRecord
				if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
					return fmt.Errorf("docstore: unmarshal user: %w", err)
				}
				usr := rec.User
				out = append(out, &usr)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites the user row, enforcing optimistic concurrency on
// user.Version (the caller is responsible for incrementing it first).
func (u *Users) Update(ctx context.Context, user *domain.User, expectedVersion int) error {
	rec := toUserRecord(user)
	if err := u.c.putVersioned(ctx, rec, expectedVersion); err != nil {
		if errors.Is(err, ErrConcurrency) {
			return ErrConcurrency
		}
		return err
	}
	return nil
}

const refreshTokenEntity = "RefreshToken"

// refreshTokenRecord stores tokens under the owning user's partition so a
// Query against the base table lists every active token for a user without
// a secondary index; tokenHash is the sort key for direct lookup.
type refreshTokenRecord struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
	domain.RefreshToken
}

func toRefreshTokenRecord(t *domain.RefreshToken) *refreshTokenRecord {
	return &refreshTokenRecord{PK: pk(userEntity, t.UserID), SK: pk(refreshTokenEntity, t.TokenHash), RefreshToken: *t}
}

// RefreshTokens exposes the RefreshToken access patterns.
type RefreshTokens struct{ c *Client }

func (c *Client) RefreshTokens() *RefreshTokens { return &RefreshTokens{c: c} }

// Create persists a new refresh token under its owner's partition.
func (r *RefreshTokens) Create(ctx context.Context, token *domain.RefreshToken) error {
	return r.c.put(ctx, toRefreshTokenRecord(token)) // hash collisions are cryptographically negligible; no uniqueness condition needed
}

// Get retrieves a token by owning user and hash.
func (r *RefreshTokens) Get(ctx context.Context, userID, tokenHash string) (*domain.RefreshToken, error) {
	var rec refreshTokenRecord
	if err := r.c.getItem(ctx, pk(userEntity, userID), pk(refreshTokenEntity, tokenHash), &rec); err != nil {
		return nil, err
	}
	return &rec.RefreshToken, nil
}

// ListActiveByUser returns every non-revoked, non-expired token for a user,
// oldest first, so FIFO eviction on overflow can revoke entries[0].
func (r *RefreshTokens) ListActiveByUser(ctx context.Context, userID string) ([]*domain.RefreshToken, error) {
	var out []*domain.RefreshToken
	now := time.Now().UTC()

	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.c.table),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: pk(userEntity, userID)},
			":prefix": &types.AttributeValueMemberS{Value: refreshTokenEntity + "#"},
		},
		ScanIndexForward: aws.Bool(true),
	}
	paginator := dynamodb.NewQueryPaginator(r.c.db, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("docstore: list refresh tokens: %w", err)
		}
		for _, item := range page.Items {
			var rec refreshTokenRecord
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				return nil, fmt.Errorf("docstore: unmarshal refresh token: %w", err)
			}
			tok := rec.RefreshToken
			if tok.Active(now) {
				out = append(out, &tok)
			}
		}
	}
	// The sort key orders tokens by hash, so order by creation time here.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Revoke marks a token revoked in place.
func (r *RefreshTokens) Revoke(ctx context.Context, userID, tokenHash string) error {
	tok, err := r.Get(ctx, userID, tokenHash)
	if err != nil {
		return err
	}
	tok.Revoked = true
	return r.Create(ctx, tok)
}
