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

const playlistEntity = "Playlist"

// playlistRecord is the item shape for domain.Playlist, projected into
// UserIndex (shared with tracks; entity prefix on pk keeps the two kinds
// from colliding under the same GSI partition value) so a user's playlists
// list without a scan.
type playlistRecord struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
	domain.Playlist
}

func toPlaylistRecord(p *domain.Playlist) *playlistRecord {
	return &playlistRecord{PK: pk(playlistEntity, p.ID), SK: metaSK, Playlist: *p}
}

// Playlists exposes the Playlist access patterns.
type Playlists struct{ c *Client }

func (c *Client) Playlists() *Playlists { return &Playlists{c: c} }

// Create writes a new playlist row.
func (p *Playlists) Create(ctx context.Context, playlist *domain.Playlist) error {
	return p.c.putNew(ctx, toPlaylistRecord(playlist))
}

// Get loads a playlist by id.
func (p *Playlists) Get(ctx context.Context, id string) (*domain.Playlist, error) {
	var rec playlistRecord
	if err := p.c.getItem(ctx, pk(playlistEntity, id), metaSK, &rec); err != nil {
		return nil, err
	}
	return &rec.Playlist, nil
}

// Update overwrites the playlist row under optimistic concurrency. Every
// mutating playlist operation (AddTracks, RemoveAt, Reorder, cascade
// removal) funnels through this one method after recomputing Entries.
func (p *Playlists) Update(ctx context.Context, playlist *domain.Playlist, expectedVersion int) error {
	return p.c.putVersioned(ctx, toPlaylistRecord(playlist), expectedVersion)
}

// Delete removes the playlist row.
func (p *Playlists) Delete(ctx context.Context, id string) error {
	return p.c.deleteItem(ctx, pk(playlistEntity, id), metaSK)
}

// ListByUser pages through a user's playlists via UserIndex.
func (p *Playlists) ListByUser(ctx context.Context, userID string, limit int32) ([]*domain.Playlist, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(p.c.table),
		IndexName:              aws.String("UserIndex"),
		KeyConditionExpression: aws.String("userId = :u"),
		FilterExpression:       aws.String("begins_with(pk, :p)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
			":p": &types.AttributeValueMemberS{Value: playlistEntity + "#"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	}
	out, err := p.c.db.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("docstore: list playlists by user: %w", err)
	}
	playlists := make([]*domain.Playlist, 0, len(out.Items))
	for _, item := range out.Items {
		var rec playlistRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, fmt.Errorf("docstore: unmarshal playlist: %w", err)
		}
		pl := rec.Playlist
		playlists = append(playlists, &pl)
	}
	return playlists, nil
}

// ListReferencing scans for every playlist that contains trackID in its
// Entries, for cascade removal when a track is hard-deleted. Playlist
// membership has no secondary index of its own (a deletion is rare and
// off the request path, run from the lifecycle sweep), so this accepts an
// in-process filter over a full scan rather than adding write-amplifying
// per-track indexes.
func (p *Playlists) ListReferencing(ctx context.Context, trackID string) ([]*domain.Playlist, error) {
	var playlists []*domain.Playlist
	err := p.c.scanAll(ctx, "begins_with(pk, :p)",
		map[string]types.AttributeValue{":p": &types.AttributeValueMemberS{Value: playlistEntity + "#"}},
		func(items []map[string]types.AttributeValue) error {
			for _, item := range items {
				var rec playlistRecord
				if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
					return fmt.Errorf("docstore: unmarshal playlist: %w", err)
				}
				for _, e := range rec.Entries {
					if e.TrackID == trackID {
						pl := rec.Playlist
						playlists = append(playlists, &pl)
						break
					}
				}
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return playlists, nil
}
