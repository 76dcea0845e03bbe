// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/novatune/backend/internal/domain"
)

func newModerationEntry(id string, ts time.Time) *domain.AuditLogEntry {
	return &domain.AuditLogEntry{
		ID:         id,
		ActorUserID: "admin-1",
		ActorEmail: "admin@example.com",
		Action:     domain.AuditActionTrackModerated,
		TargetType: domain.AuditTargetTrack,
		TargetID:   "track-" + id,
		ReasonCode: "copyright_claim",
		Timestamp:  ts,
	}
}

func TestChainAppendAndVerify(t *testing.T) {
	store := NewMemoryChainStore()
	chain := NewChain(store)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, id := range []string{"1", "2", "3"} {
		entry := newModerationEntry(id, now.Add(time.Duration(i)*time.Second))
		if err := chain.Append(ctx, entry); err != nil {
			t.Fatalf("Append(%s): %v", id, err)
		}
	}

	result, err := chain.Verify(ctx)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.IsValid {
		t.Errorf("expected chain valid, got invalid entries %v", result.InvalidAuditIDs)
	}
	if result.EntriesChecked != 3 {
		t.Errorf("EntriesChecked = %d, want 3", result.EntriesChecked)
	}
	if result.InvalidEntries != 0 {
		t.Errorf("InvalidEntries = %d, want 0", result.InvalidEntries)
	}
}

func TestChainFirstEntryHasNoPredecessor(t *testing.T) {
	store := NewMemoryChainStore()
	chain := NewChain(store)
	entry := newModerationEntry("1", time.Now().UTC())

	if err := chain.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if entry.PreviousEntryHash != "" {
		t.Errorf("expected empty PreviousEntryHash for the first entry, got %q", entry.PreviousEntryHash)
	}
	if entry.ContentHash == "" {
		t.Error("expected a non-empty ContentHash")
	}
}

func TestChainDetectsTampering(t *testing.T) {
	store := NewMemoryChainStore()
	chain := NewChain(store)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, id := range []string{"1", "2", "3"} {
		entry := newModerationEntry(id, now.Add(time.Duration(i)*time.Second))
		if err := chain.Append(ctx, entry); err != nil {
			t.Fatalf("Append(%s): %v", id, err)
		}
	}

	// Tamper with the second entry's reasonCode without going through Append.
	entries, _ := store.ListInOrder(ctx)
	tamperedID := entries[1].ID
	store.TamperReasonCode(1, "tampered_reason")

	result, err := chain.Verify(ctx)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.IsValid {
		t.Fatal("expected chain to be invalid after tampering")
	}
	if result.InvalidEntries != 1 {
		t.Errorf("InvalidEntries = %d, want 1", result.InvalidEntries)
	}
	if len(result.InvalidAuditIDs) != 1 || result.InvalidAuditIDs[0] != tamperedID {
		t.Errorf("InvalidAuditIDs = %v, want [%s]", result.InvalidAuditIDs, tamperedID)
	}
}

func TestChainVerifyOnEmptyStore(t *testing.T) {
	store := NewMemoryChainStore()
	chain := NewChain(store)

	result, err := chain.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.IsValid || result.EntriesChecked != 0 {
		t.Errorf("expected valid empty chain, got %+v", result)
	}
}
