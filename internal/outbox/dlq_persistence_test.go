// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend
package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeDLQStore is an in-memory DLQStore used to exercise PersistentDLQHandler
// without a real DynamoDB table.
type fakeDLQStore struct {
	mu      sync.Mutex
	entries map[string]*DLQEntry
}

func newFakeDLQStore() *fakeDLQStore {
	return &fakeDLQStore{entries: make(map[string]*DLQEntry)}
}

func (s *fakeDLQStore) Save(_ context.Context, entry *DLQEntry) error {
	if entry == nil || entry.Envelope == nil {
		return errors.New("entry and envelope cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.entries[entry.Envelope.MessageID] = &cp
	return nil
}

func (s *fakeDLQStore) Get(_ context.Context, messageID string) (*DLQEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[messageID]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

func (s *fakeDLQStore) Update(ctx context.Context, entry *DLQEntry) error {
	return s.Save(ctx, entry)
}

func (s *fakeDLQStore) Delete(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, messageID)
	return nil
}

func (s *fakeDLQStore) List(_ context.Context) ([]*DLQEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*DLQEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		cp := *entry
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeDLQStore) DeleteExpired(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, entry := range s.entries {
		if entry.FirstFailure.Before(olderThan) {
			delete(s.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *fakeDLQStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.entries)), nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestPersistentDLQHandler_AddEntryPersists(t *testing.T) {
	store := newFakeDLQStore()
	handler, err := NewPersistentDLQHandler(DefaultDLQConfig(), store)
	if err != nil {
		t.Fatalf("NewPersistentDLQHandler: %v", err)
	}

	env := newTestEnvelope("ev-1")
	handler.AddEntry(env, errors.New("connection timeout"), "msg-123")

	waitFor(t, time.Second, func() bool {
		got, _ := store.Get(context.Background(), env.MessageID)
		return got != nil
	})

	retrieved, err := store.Get(context.Background(), env.MessageID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if retrieved == nil {
		t.Fatal("expected entry to be persisted")
	}
	if retrieved.Envelope.MessageID != env.MessageID {
		t.Errorf("MessageID mismatch: got %s, want %s", retrieved.Envelope.MessageID, env.MessageID)
	}
}

func TestPersistentDLQHandler_IncrementRetryPersists(t *testing.T) {
	store := newFakeDLQStore()
	handler, _ := NewPersistentDLQHandler(DefaultDLQConfig(), store)

	env := newTestEnvelope("ev-2")
	handler.AddEntry(env, errors.New("timeout"), "msg-456")
	handler.IncrementRetry(env.MessageID, errors.New("still timing out"))

	waitFor(t, time.Second, func() bool {
		got, _ := store.Get(context.Background(), env.MessageID)
		return got != nil && got.RetryCount == 1
	})

	retrieved, _ := store.Get(context.Background(), env.MessageID)
	if retrieved.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", retrieved.RetryCount)
	}
	if retrieved.LastError != "still timing out" {
		t.Errorf("LastError = %q, want %q", retrieved.LastError, "still timing out")
	}
}

func TestPersistentDLQHandler_RemoveEntryPersists(t *testing.T) {
	store := newFakeDLQStore()
	handler, _ := NewPersistentDLQHandler(DefaultDLQConfig(), store)

	env := newTestEnvelope("ev-3")
	handler.AddEntry(env, errors.New("error"), "msg-789")

	waitFor(t, time.Second, func() bool {
		got, _ := store.Get(context.Background(), env.MessageID)
		return got != nil
	})

	handler.RemoveEntry(env.MessageID)

	waitFor(t, time.Second, func() bool {
		got, _ := store.Get(context.Background(), env.MessageID)
		return got == nil
	})
}

func TestPersistentDLQHandler_LoadsPersistedEntriesOnStartup(t *testing.T) {
	store := newFakeDLQStore()
	env := newTestEnvelope("ev-4")
	_ = store.Save(context.Background(), &DLQEntry{
		Envelope:      env,
		MessageID:     "msg-recovered",
		OriginalError: "boot-time failure",
		LastError:     "boot-time failure",
		FirstFailure:  time.Now().UTC(),
		LastFailure:   time.Now().UTC(),
		NextRetry:     time.Now().UTC(),
		Category:      ErrorCategoryUnknown,
	})

	handler, err := NewPersistentDLQHandler(DefaultDLQConfig(), store)
	if err != nil {
		t.Fatalf("NewPersistentDLQHandler: %v", err)
	}

	if entry := handler.GetEntry(env.MessageID); entry == nil {
		t.Error("expected entry recovered from persistent storage to be loaded into memory")
	}
}

func TestPersistentDLQHandler_DeleteExpired(t *testing.T) {
	store := newFakeDLQStore()
	now := time.Now().UTC()

	oldEnv := newTestEnvelope("old-event")
	newEnv := newTestEnvelope("new-event")

	_ = store.Save(context.Background(), &DLQEntry{
		Envelope: oldEnv, MessageID: "msg-old", OriginalError: "error", LastError: "error",
		FirstFailure: now.Add(-48 * time.Hour), LastFailure: now.Add(-48 * time.Hour), NextRetry: now,
		Category: ErrorCategoryUnknown,
	})
	_ = store.Save(context.Background(), &DLQEntry{
		Envelope: newEnv, MessageID: "msg-new", OriginalError: "error", LastError: "error",
		FirstFailure: now.Add(-1 * time.Hour), LastFailure: now.Add(-1 * time.Hour), NextRetry: now,
		Category: ErrorCategoryUnknown,
	})

	deleted, err := store.DeleteExpired(context.Background(), now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if got, _ := store.Get(context.Background(), oldEnv.MessageID); got != nil {
		t.Error("old entry should have been deleted")
	}
	if got, _ := store.Get(context.Background(), newEnv.MessageID); got == nil {
		t.Error("new entry should still exist")
	}
}

func TestPersistentDLQHandler_SaveNilEntry(t *testing.T) {
	store := newFakeDLQStore()
	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("expected error when saving nil entry")
	}
}

var _ DLQStore = (*fakeDLQStore)(nil)
