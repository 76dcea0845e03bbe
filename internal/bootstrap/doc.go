// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package bootstrap holds the construction logic shared by every cmd/*
// binary: AWS client setup, the watermill-to-zerolog logging bridge, and the
// document-store/object-store/cache wiring each process needs before it can
// build its own core and worker.
package bootstrap
