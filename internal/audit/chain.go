// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/novatune/backend/internal/domain"
)

// ChainStore persists domain.AuditLogEntry rows and lists them back in
// timestamp order for chain verification. Backed by the document store in
// production (see internal/docstore); a MemoryChainStore is provided for
// tests and single-process deployments.
type ChainStore interface {
	Append(ctx context.Context, entry *domain.AuditLogEntry) error
	Latest(ctx context.Context) (*domain.AuditLogEntry, error)
	ListInOrder(ctx context.Context) ([]domain.AuditLogEntry, error)
}

// Chain appends hash-linked AuditLogEntry rows and verifies the chain.
// Every admin mutation calls Append; nothing ever updates or deletes a row.
type Chain struct {
	store ChainStore
}

// NewChain constructs a Chain backed by store.
func NewChain(store ChainStore) *Chain {
	return &Chain{store: store}
}

// Append sets entry.PreviousEntryHash from the current head and
// entry.ContentHash from the canonical encoding of entry (without its own
// ContentHash field), then persists it. Callers supply every other field.
func (c *Chain) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	prev, err := c.store.Latest(ctx)
	if err != nil {
		return fmt.Errorf("audit: load latest entry: %w", err)
	}
	if prev != nil {
		entry.PreviousEntryHash = prev.ContentHash
	} else {
		entry.PreviousEntryHash = ""
	}
	entry.ContentHash = contentHash(entry)

	if err := c.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("audit: append entry: %w", err)
	}
	return nil
}

// VerifyResult is the outcome of a full-chain walk.
type VerifyResult struct {
	IsValid         bool     `json:"isValid"`
	EntriesChecked  int      `json:"entriesChecked"`
	InvalidEntries  int      `json:"invalidEntries"`
	InvalidAuditIDs []string `json:"invalidAuditIds,omitempty"`
}

// Verify walks every entry in timestamp order and recomputes hashes,
// reporting every entry whose stored hash no longer matches its content or
// whose previousEntryHash no longer matches its predecessor's content hash.
func (c *Chain) Verify(ctx context.Context) (*VerifyResult, error) {
	entries, err := c.store.ListInOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: list entries: %w", err)
	}

	result := &VerifyResult{IsValid: true, EntriesChecked: len(entries)}
	var prevHash string
	for i := range entries {
		e := &entries[i]
		valid := true

		if i > 0 && e.PreviousEntryHash != prevHash {
			valid = false
		}
		if contentHash(e) != e.ContentHash {
			valid = false
		}

		if !valid {
			result.IsValid = false
			result.InvalidEntries++
			result.InvalidAuditIDs = append(result.InvalidAuditIDs, e.ID)
		}
		prevHash = e.ContentHash
	}
	return result, nil
}

// contentHash computes SHA-256 over the canonical JSON encoding of entry
// with ContentHash cleared, so the hash commits to every other field.
func contentHash(entry *domain.AuditLogEntry) string {
	cp := *entry
	cp.ContentHash = ""
	// Canonical encoding: goccy/go-json marshals struct fields in declaration
	// order, which is stable across calls and processes for a fixed type.
	data, err := json.Marshal(cp)
	if err != nil {
		// Marshal of a plain struct cannot fail; a panic here would indicate
		// a field type that json cannot encode, a programming error.
		panic(fmt.Sprintf("audit: marshal entry for hashing: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MemoryChainStore is an in-memory ChainStore, append-only within a process.
type MemoryChainStore struct {
	entries []domain.AuditLogEntry
}

// NewMemoryChainStore constructs an empty MemoryChainStore.
func NewMemoryChainStore() *MemoryChainStore {
	return &MemoryChainStore{}
}

func (m *MemoryChainStore) Append(_ context.Context, entry *domain.AuditLogEntry) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *MemoryChainStore) Latest(_ context.Context) (*domain.AuditLogEntry, error) {
	if len(m.entries) == 0 {
		return nil, nil
	}
	e := m.entries[len(m.entries)-1]
	return &e, nil
}

func (m *MemoryChainStore) ListInOrder(_ context.Context) ([]domain.AuditLogEntry, error) {
	out := make([]domain.AuditLogEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

// TamperReasonCode mutates a stored entry's reason code in place, bypassing
// Append, to simulate the storage-level tampering scenario Verify must detect.
func (m *MemoryChainStore) TamperReasonCode(index int, reasonCode string) {
	if index < 0 || index >= len(m.entries) {
		return
	}
	m.entries[index].ReasonCode = reasonCode
}
