// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package lifecycle runs the periodic sweep that finishes what a
// soft-delete starts: once a track's grace window has elapsed it deletes
// the audio and waveform objects, removes the track from any playlist that
// still references it, and finally deletes the track document itself.
package lifecycle
