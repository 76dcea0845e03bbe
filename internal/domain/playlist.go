// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package domain

import "time"

// PlaylistVisibility controls who may read a playlist.
type PlaylistVisibility string

const (
	VisibilityPrivate  PlaylistVisibility = "private"
	VisibilityUnlisted PlaylistVisibility = "unlisted"
	VisibilityPublic   PlaylistVisibility = "public"
)

// PlaylistEntry is one track reference within a playlist's dense position sequence.
type PlaylistEntry struct {
	Position int       `json:"position" dynamodbav:"position"`
	TrackID  string    `json:"trackId" dynamodbav:"trackId"`
	AddedAt  time.Time `json:"addedAt" dynamodbav:"addedAt"`
}

// Playlist is an ordered, owned collection of track references. Track
// references are weak: a broken reference is tolerated and surfaced to
// the caller as a deleted track rather than failing the whole list.
type Playlist struct {
	ID              string             `json:"id" dynamodbav:"id"`
	UserID          string             `json:"userId" dynamodbav:"userId"`
	Name            string             `json:"name" dynamodbav:"name"`
	Description     string             `json:"description,omitempty" dynamodbav:"description,omitempty"`
	Entries         []PlaylistEntry    `json:"entries" dynamodbav:"entries"`
	TrackCount      int                `json:"trackCount" dynamodbav:"trackCount"`
	TotalDuration   float64            `json:"totalDuration" dynamodbav:"totalDuration"`
	Visibility      PlaylistVisibility `json:"visibility" dynamodbav:"visibility"`
	CreatedAt       time.Time          `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" dynamodbav:"updatedAt"`
	Version         int                `json:"-" dynamodbav:"version"`
}

// Densify renumbers entries as the dense sequence [0, n) in their current
// order, without reordering them. Callers must sort entries first if the
// operation (RemoveAt, cascade removal) changed their relative order.
func (p *Playlist) Densify() {
	for i := range p.Entries {
		p.Entries[i].Position = i
	}
	p.TrackCount = len(p.Entries)
}
