// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package ingestor is the upload ingestor worker: it consumes
// object-created notifications from the bus, turns a completed upload into
// a Track row, and hands the track off to the audio processor by appending
// an AudioUploaded outbox message. It never sees a presigned URL or an
// HTTP request — its only input is the bus and the object store.
package ingestor
