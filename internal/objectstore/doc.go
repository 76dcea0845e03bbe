// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package objectstore wraps S3 (or an S3-compatible self-hosted endpoint)
// to issue the two presigned URLs the rest of the system needs: a PUT for
// uploading the original audio file, and a GET for streaming or for
// downloading a generated waveform. Neither the API process nor any worker
// proxies object bytes to an HTTP client; every byte a listener or
// uploader sees flows directly between them and the bucket. The one
// exceptions are GetObject, read internally by the ingestor to checksum an
// upload, and PutObject, written internally by the audio processor to
// store a generated waveform — neither stream ever reaches an HTTP client.
package objectstore
