// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package docstore

import (
	"context"
	"sort"
	"strings"

	"github.com/novatune/backend/internal/domain"
)

// trigrams returns the set of overlapping 3-character substrings of s,
// lower-cased. Strings shorter than 3 runes fold to the single trigram
// equal to the whole string so a one- or two-letter query still matches.
func trigrams(s string) map[string]struct{} {
	s = strings.ToLower(strings.TrimSpace(s))
	runes := []rune(s)
	set := make(map[string]struct{})
	if len(runes) < 3 {
		if len(runes) > 0 {
			set[s] = struct{}{}
		}
		return set
	}
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// similarity is the Jaccard index of two trigram sets, in [0, 1].
func similarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// searchMatchThreshold is the minimum trigram Jaccard similarity a
// candidate's title+artist must reach against the query to be considered a
// match. Tuned against short (one or two word) queries typical of a
// personal music library; raising it trades recall for precision.
const searchMatchThreshold = 0.15

type trackSearchHit struct {
	track *domain.Track
	score float64
}

// SearchTracks scans every Ready track and ranks it by trigram similarity
// of its title and artist against query, returning at most limit hits best
// first. DynamoDB has no native full-text index, so this in-process
// approximation stands in for one; see Tracks.ScanCandidatesForSearch for
// the table scan it rides on.
func (c *Client) SearchTracks(ctx context.Context, userID, query string, limit int) ([]*domain.Track, error) {
	queryTrigrams := trigrams(query)
	var hits []trackSearchHit

	err := c.Tracks().ScanCandidatesForSearch(ctx, func(t *domain.Track) bool {
		if userID != "" && t.UserID != userID {
			return true
		}
		candidate := t.Title
		if t.Artist != "" {
			candidate = candidate + " " + t.Artist
		}
		score := similarity(queryTrigrams, trigrams(candidate))
		if score >= searchMatchThreshold {
			hits = append(hits, trackSearchHit{track: t, score: score})
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]*domain.Track, len(hits))
	for i, h := range hits {
		out[i] = h.track
	}
	return out, nil
}

// SearchTracksForAdmin ranks every track, in any status and across every
// owner, by trigram similarity of title+artist against query. Unlike
// SearchTracks it does not restrict to Status=Ready, since an admin must be
// able to find a Processing or Failed track to moderate it.
func (c *Client) SearchTracksForAdmin(ctx context.Context, query string, limit int) ([]*domain.Track, error) {
	queryTrigrams := trigrams(query)
	var hits []trackSearchHit

	err := c.Tracks().ListAllForAdmin(ctx, func(t *domain.Track) bool {
		candidate := t.Title
		if t.Artist != "" {
			candidate = candidate + " " + t.Artist
		}
		score := similarity(queryTrigrams, trigrams(candidate))
		if score >= searchMatchThreshold {
			hits = append(hits, trackSearchHit{track: t, score: score})
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]*domain.Track, len(hits))
	for i, h := range hits {
		out[i] = h.track
	}
	return out, nil
}

type userSearchHit struct {
	user  *domain.User
	score float64
}

// SearchUsers ranks every user by trigram similarity of email+displayName
// against query, for the admin user listing.
func (c *Client) SearchUsers(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	candidates, err := c.Users().ListAll(ctx)
	if err != nil {
		return nil, err
	}
	queryTrigrams := trigrams(query)
	var hits []userSearchHit
	for _, u := range candidates {
		candidate := u.Email + " " + u.DisplayName
		score := similarity(queryTrigrams, trigrams(candidate))
		if score >= searchMatchThreshold {
			hits = append(hits, userSearchHit{user: u, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]*domain.User, len(hits))
	for i, h := range hits {
		out[i] = h.user
	}
	return out, nil
}

type playlistSearchHit struct {
	playlist *domain.Playlist
	score    float64
}

// SearchPlaylists ranks a user's playlists by trigram similarity of their
// name against query, returning at most limit hits best first. The
// candidate set is one ListByUser page of up to 1000 playlists; playlists
// beyond that page are not searched. Unlike SearchTracks, no table-wide
// scan is involved.
func (c *Client) SearchPlaylists(ctx context.Context, userID, query string, limit int) ([]*domain.Playlist, error) {
	// DynamoDB's Query Limit must be a positive value; one page at this
	// size comfortably covers a user's whole library of playlists.
	candidates, err := c.Playlists().ListByUser(ctx, userID, 1000)
	if err != nil {
		return nil, err
	}
	queryTrigrams := trigrams(query)
	var hits []playlistSearchHit
	for _, p := range candidates {
		score := similarity(queryTrigrams, trigrams(p.Name))
		if score >= searchMatchThreshold {
			hits = append(hits, playlistSearchHit{playlist: p, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]*domain.Playlist, len(hits))
	for i, h := range hits {
		out[i] = h.playlist
	}
	return out, nil
}
