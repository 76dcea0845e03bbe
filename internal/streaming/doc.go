// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package streaming invalidates cached presigned stream URLs whenever a
// track stops being streamable: on soft-delete (driven by a TrackDeleted
// bus consumer), on a moderation status change, and on an owner's
// logout-all. internal/track owns issuing and caching the URL; this
// package only ever removes entries.
package streaming
