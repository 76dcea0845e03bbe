// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package ratelimit implements the sliding-window request limiters backing
// every rate-limited route: the login endpoint's IP-and-account pair and
// the general per-route policies named in internal/api's route table.
package ratelimit
