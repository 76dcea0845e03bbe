// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

/*
Package domain defines the core entities persisted in the document store.

These are storage-shape types: every exported field carries both a `json`
tag (wire/API representation) and a `dynamodbav` tag (single-table DynamoDB
representation, see internal/docstore). Entities never import the store or
bus packages — domain is the dependency root for the rest of the backend.

Identifiers are 26-character ULIDs (github.com/oklog/ulid) unless noted.
Timestamps are UTC.
*/
package domain
