// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package track implements the track core: listing and searching a user's
// library, editing and soft-deleting tracks, restoring a track within its
// grace window, and issuing cached, presigned stream URLs.
package track
