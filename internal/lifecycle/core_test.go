// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeObjects struct {
	mu      sync.Mutex
	deleted []string
	failOn  string
}

func (f *fakeObjects) Delete(_ context.Context, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && objectKey == f.failOn {
		return errors.New("object store unavailable")
	}
	f.deleted = append(f.deleted, objectKey)
	return nil
}

type fakePlaylists struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakePlaylists) CascadeRemove(_ context.Context, trackID, _ string, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, trackID)
	return f.err
}

func TestBatchSizeAndMaxConcurrencyDefaults(t *testing.T) {
	c := &Core{}
	if c.batchSize() != 100 {
		t.Fatalf("batchSize() = %d, want 100", c.batchSize())
	}
	if c.maxConcurrency() != 8 {
		t.Fatalf("maxConcurrency() = %d, want 8", c.maxConcurrency())
	}
}

func TestBatchSizeAndMaxConcurrencyRespectConfig(t *testing.T) {
	c := &Core{}
	c.cfg.BatchSize = 25
	c.cfg.MaxConcurrency = 2
	if c.batchSize() != 25 {
		t.Fatalf("batchSize() = %d, want 25", c.batchSize())
	}
	if c.maxConcurrency() != 2 {
		t.Fatalf("maxConcurrency() = %d, want 2", c.maxConcurrency())
	}
}

func TestFakeObjectsDeleteFailureIsObservable(t *testing.T) {
	objects := &fakeObjects{failOn: "audio/user_1/trk_1/n1"}
	ctx := context.Background()

	if err := objects.Delete(ctx, "audio/user_1/trk_1/n1"); err == nil {
		t.Fatal("expected the configured failure")
	}
	if err := objects.Delete(ctx, "waveform/user_1/trk_1.json"); err != nil {
		t.Fatalf("unexpected error deleting a non-failing key: %v", err)
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != "waveform/user_1/trk_1.json" {
		t.Fatalf("deleted = %v, want [waveform/user_1/trk_1.json]", objects.deleted)
	}
}

func TestFakePlaylistsRecordsCascadeCalls(t *testing.T) {
	playlists := &fakePlaylists{}
	ctx := context.Background()

	if err := playlists.CascadeRemove(ctx, "trk_1", "user_1", 180); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(playlists.calls) != 1 || playlists.calls[0] != "trk_1" {
		t.Fatalf("calls = %v, want [trk_1]", playlists.calls)
	}
}
