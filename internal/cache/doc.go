// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package cache is a Redis-backed cache for presigned stream URLs and other
// short-lived derived values. Every value is AES-256-GCM encrypted before
// it leaves the process, since a presigned URL is itself a bearer
// credential and Redis is not assumed to be a trusted store on its own.
//
// Every read and write is wrapped by a circuit breaker (internal/resilience)
// and fails open: a Redis outage degrades the request path to a cache miss
// rather than an error, since every cached value here is cheap to
// recompute from the document store and object store.
package cache
