// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package domain

import (
	"testing"
	"time"
)

func TestUserHasRole(t *testing.T) {
	u := &User{Roles: []UserRole{RoleListener}}
	if !u.HasRole(RoleListener) {
		t.Error("expected HasRole(Listener) = true")
	}
	if u.HasRole(RoleAdmin) {
		t.Error("expected HasRole(Admin) = false")
	}
}

func TestUserIsActive(t *testing.T) {
	u := &User{Status: UserStatusActive}
	if !u.IsActive() {
		t.Error("expected IsActive = true")
	}
	u.Status = UserStatusDisabled
	if u.IsActive() {
		t.Error("expected IsActive = false after disabling")
	}
}

func TestRefreshTokenActive(t *testing.T) {
	now := time.Now()
	tok := &RefreshToken{ExpiresAt: now.Add(time.Hour)}
	if !tok.Active(now) {
		t.Error("expected token to be active before expiry")
	}
	tok.Revoked = true
	if tok.Active(now) {
		t.Error("expected revoked token to be inactive")
	}
	tok2 := &RefreshToken{ExpiresAt: now.Add(-time.Hour)}
	if tok2.Active(now) {
		t.Error("expected expired token to be inactive")
	}
}

func TestUploadSessionExpired(t *testing.T) {
	now := time.Now()
	s := &UploadSession{ExpiresAt: now.Add(time.Minute)}
	if s.Expired(now) {
		t.Error("expected not expired yet")
	}
	if !s.Expired(now.Add(2 * time.Minute)) {
		t.Error("expected expired after window")
	}
}

func TestTrackStreamable(t *testing.T) {
	tests := []struct {
		name       string
		status     TrackStatus
		moderation ModerationStatus
		want       bool
	}{
		{"ready and clean", TrackStatusReady, ModerationNone, true},
		{"ready under review", TrackStatusReady, ModerationUnderReview, true},
		{"ready but removed", TrackStatusReady, ModerationRemoved, false},
		{"still processing", TrackStatusProcessing, ModerationNone, false},
		{"deleted", TrackStatusDeleted, ModerationNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &Track{Status: tt.status, ModerationStatus: tt.moderation}
			if got := tr.Streamable(); got != tt.want {
				t.Errorf("Streamable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrackRestorationExpired(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	tr := &Track{ScheduledDeletionAt: &future}
	if tr.RestorationExpired(now) {
		t.Error("expected restoration still available before scheduled deletion")
	}
	past := now.Add(-time.Hour)
	tr.ScheduledDeletionAt = &past
	if !tr.RestorationExpired(now) {
		t.Error("expected restoration expired after scheduled deletion")
	}
	tr.ScheduledDeletionAt = nil
	if !tr.RestorationExpired(now) {
		t.Error("expected restoration expired with no scheduled deletion set")
	}
}

func TestPlaylistDensify(t *testing.T) {
	p := &Playlist{Entries: []PlaylistEntry{
		{Position: 5, TrackID: "a"},
		{Position: 9, TrackID: "b"},
		{Position: 1, TrackID: "c"},
	}}
	p.Densify()
	for i, e := range p.Entries {
		if e.Position != i {
			t.Errorf("entry %d has position %d, want %d", i, e.Position, i)
		}
	}
	if p.TrackCount != 3 {
		t.Errorf("TrackCount = %d, want 3", p.TrackCount)
	}
}
