// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package streaming

import (
	"context"
	"fmt"
)

// Cache is the subset of cache.Client the invalidator depends on.
type Cache interface {
	Delete(ctx context.Context, key string)
	RemoveByPattern(ctx context.Context, pattern string)
}

// Invalidator removes cached stream URLs. The key shape mirrors
// internal/track's streamCacheKey exactly; the two packages are kept in
// sync by convention rather than a shared constructor, since neither
// imports the other.
type Invalidator struct{ cache Cache }

// NewInvalidator wires an Invalidator against cache.
func NewInvalidator(cache Cache) *Invalidator {
	return &Invalidator{cache: cache}
}

func streamCacheKey(userID, trackID string) string {
	return fmt.Sprintf("stream:%s:%s", userID, trackID)
}

// InvalidateTrack removes the single cached stream URL for one track,
// used on soft-delete and on a moderation status change leaving the
// streamable set.
func (i *Invalidator) InvalidateTrack(ctx context.Context, userID, trackID string) {
	i.cache.Delete(ctx, streamCacheKey(userID, trackID))
}

// InvalidateAllForUser removes every cached stream URL belonging to a
// user, used on logout-all so no previously-issued URL a client may have
// cached client-side keeps resolving to a live cache hit server-side.
func (i *Invalidator) InvalidateAllForUser(ctx context.Context, userID string) {
	i.cache.RemoveByPattern(ctx, fmt.Sprintf("stream:%s:*", userID))
}
