// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package upload implements the Upload core: reserving a track id and
// object key, issuing a presigned PUT for the client to upload directly to
// object storage, and periodically expiring sessions nobody ever completed.
// It does not see a single byte of the uploaded file — the ingestor worker
// (internal/ingestor) picks up from the object-created notification.
package upload
