// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/novatune/backend/internal/bus"
)

// Status is the lifecycle state of a Message row.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusPublished Status = "Published"
	StatusFailed    Status = "Failed"
)

// ForwarderConfig holds configuration for the outbox relay.
type ForwarderConfig struct {
	// PollInterval is how often to scan for pending messages. Default: 100ms.
	PollInterval time.Duration

	// BatchSize is the maximum number of messages to forward per poll. Default: 100.
	BatchSize int

	// MaxAttempts is the attempts counter ceiling after which a row is marked Failed. Default: 5.
	MaxAttempts int
}

// DefaultForwarderConfig returns production defaults.
func DefaultForwarderConfig() ForwarderConfig {
	return ForwarderConfig{
		PollInterval: 100 * time.Millisecond,
		BatchSize:    100,
		MaxAttempts:  5,
	}
}

// Message is a row in the transactional outbox. It is written in the same
// document-store transaction as the business state change it announces, and
// relayed to the bus by the Forwarder.
type Message struct {
	ID            string
	Type          string
	Topic         string
	PartitionKey  string
	Payload       json.RawMessage
	CorrelationID string
	Status        Status
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// Store defines the persistence contract for outbox rows. Implementations
// (internal/docstore) must guarantee that GetPending returns rows ordered
// by CreatedAt ascending, since the relay relies on that ordering — plus
// the bus's own per-key ordering guarantee — to preserve publication order
// within a partition key.
type Store interface {
	// Append writes a pending row. Callers append this in the same
	// document-store transaction as the business state it announces.
	Append(ctx context.Context, msg *Message) error

	// GetPending returns pending rows ordered by CreatedAt ascending, limit bound.
	GetPending(ctx context.Context, limit int) ([]*Message, error)

	// MarkPublished transitions a row to Published.
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error

	// MarkFailed increments the attempts counter and records the error. If
	// attempts reaches maxAttempts the row transitions to Failed instead of
	// remaining Pending.
	MarkFailed(ctx context.Context, id string, attempts int, lastErr string, maxAttemptsReached bool) error
}

// Publisher is the subset of *bus.Publisher the relay depends on.
type Publisher interface {
	PublishEnvelope(ctx context.Context, env *bus.Envelope) error
}

// Forwarder implements the transactional outbox relay: it continuously
// scans for Pending rows in ascending creation order and publishes each to
// the bus, retaining Pending on transient failure and only giving up once
// Attempts reaches MaxAttempts. A row is always published at least once;
// consumers of the bus must be idempotent.
//
// The relay is at-most-one active instance per deployment — leader election
// across replicas is out of scope; operators run a single relay replica.
type Forwarder struct {
	store     Store
	publisher Publisher
	config    ForwarderConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewForwarder creates a new outbox relay.
func NewForwarder(store Store, publisher Publisher, cfg ForwarderConfig) (*Forwarder, error) {
	if store == nil {
		return nil, fmt.Errorf("outbox store required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultForwarderConfig().BatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultForwarderConfig().PollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultForwarderConfig().MaxAttempts
	}

	return &Forwarder{
		store:     store,
		publisher: publisher,
		config:    cfg,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Start begins the relay loop. Implements suture.Service so the relay can
// be supervised alongside the rest of a worker binary's services.
func (f *Forwarder) Serve(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = true
	f.stopCh = make(chan struct{})
	f.doneCh = make(chan struct{})
	f.mu.Unlock()

	defer close(f.doneCh)

	ticker := time.NewTicker(f.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.stopCh:
			return nil
		case <-ticker.C:
			f.processPending(ctx)
		}
	}
}

// Stop gracefully stops the relay and waits for the in-flight poll to drain.
func (f *Forwarder) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	close(f.stopCh)
	done := f.doneCh
	f.mu.Unlock()

	<-done
}

func (f *Forwarder) processPending(ctx context.Context) {
	rows, err := f.store.GetPending(ctx, f.config.BatchSize)
	if err != nil {
		return
	}

	for _, row := range rows {
		_ = f.forward(ctx, row)
	}
}

func (f *Forwarder) forward(ctx context.Context, row *Message) error {
	env := bus.NewEnvelope(row.Type, row.Topic, row.PartitionKey, row.CorrelationID, row.Payload)
	env.MessageID = row.ID

	if err := f.publisher.PublishEnvelope(ctx, env); err != nil {
		attempts := row.Attempts + 1
		maxed := attempts >= f.config.MaxAttempts
		return f.store.MarkFailed(ctx, row.ID, attempts, err.Error(), maxed)
	}

	return f.store.MarkPublished(ctx, row.ID, time.Now().UTC())
}
