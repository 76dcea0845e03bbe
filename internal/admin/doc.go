// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package admin implements user and track moderation, analytics reads, and
// the audit trail every admin mutation appends to. It reuses track.Core's
// soft-delete path for the Removed moderation outcome rather than
// duplicating it, and internal/streaming.Invalidator for moderation changes
// that flip a track's streamability.
package admin
