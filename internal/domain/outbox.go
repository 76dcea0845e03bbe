// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package domain

import "time"

// OutboxStatus tracks relay progress for an OutboxMessage row. Mirrors
// outbox.Status; kept as a distinct domain-level enum since this file
// describes the document-store shape, not the relay's in-memory model.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxMessage is a row written in the same document-store transaction as
// the business mutation it announces, and later relayed to the bus by
// internal/outbox.Forwarder.
type OutboxMessage struct {
	ID            string       `json:"id" dynamodbav:"id"`
	Type          string       `json:"type" dynamodbav:"type"`
	Topic         string       `json:"topic" dynamodbav:"topic"`
	PartitionKey  string       `json:"partitionKey,omitempty" dynamodbav:"partitionKey,omitempty"`
	Payload       []byte       `json:"payload" dynamodbav:"payload"`
	CorrelationID string       `json:"correlationId" dynamodbav:"correlationId"`
	CreatedAt     time.Time    `json:"createdAt" dynamodbav:"createdAt"`
	Status        OutboxStatus `json:"status" dynamodbav:"status"`
	Attempts      int          `json:"attempts" dynamodbav:"attempts"`
	LastError     string       `json:"lastError,omitempty" dynamodbav:"lastError,omitempty"`
	PublishedAt   *time.Time   `json:"publishedAt,omitempty" dynamodbav:"publishedAt,omitempty"`
}
