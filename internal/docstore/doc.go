// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

/*
Package docstore is the single-table DynamoDB adapter backing every
document-store-facing core service (upload, track, playlist, admin,
telemetry, the outbox relay, and the audit chain).

Every item's partition key is "{EntityType}#{id}" with sort key "META" for
entity rows; secondary access patterns (by email, by user, by status, by
scheduled-deletion time) are served by global secondary indexes named
after the pattern they serve (EmailIndex, UserIndex, status-createdAt-index,
ScheduledDeletionIndex). Aggregates key on their own natural partition
({trackId}/{userId}) with the bucket as sort key.

DynamoDB has no native full-text index and this package builds none. List
operations that accept a "search" term rank candidates with an in-process
trigram filter (search.go). Track and user search read their candidates
with a full table scan; playlist search reads one page of up to 1000 of the
owner's playlists. No search is served from an index, so the cost of a
track or user search grows with the table.

Optimistic concurrency (Track.Update, Playlist mutations) is enforced with
a numeric "version" attribute and a ConditionExpression; a failed condition
check is surfaced as apierr's *Concurrency variant by the calling core
service, not by this package.
*/
package docstore
