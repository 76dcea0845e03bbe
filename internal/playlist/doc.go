// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package playlist implements the playlist core: CRUD over a user's
// playlists, ordered track membership (AddTracks, RemoveAt, Reorder), and
// the cascade removal the lifecycle worker triggers when a track is
// permanently deleted.
package playlist
