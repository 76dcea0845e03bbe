// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package telemetry consumes playback events and rolls them into the
// hourly, daily, and per-user activity aggregates internal/docstore
// exposes. Updates are buffered in memory and flushed on an interval,
// since the aggregate writes are commutative ADD expressions and nothing
// downstream depends on the latency of any single event reaching storage.
package telemetry
