// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package api wires the NovaTune HTTP surface: request decoding, route
// handlers over the domain cores (auth, track, playlist, upload, admin), and
// the chi router that ties them to the go-chi middleware stack.
package api
