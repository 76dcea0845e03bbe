// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package admin

import (
	"testing"

	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/domain"
)

func TestValidModerationReasonCode(t *testing.T) {
	cases := map[ModerationReasonCode]bool{
		ModerationReasonCopyright:      true,
		ModerationReasonAbuse:          true,
		ModerationReasonIllegalContent: true,
		ModerationReasonTermsViolation: true,
		ModerationReasonFalsePositive:  true,
		ModerationReasonOther:          true,
		ModerationReasonCode("bogus"):  false,
		ModerationReasonCode(""):       false,
	}
	for code, want := range cases {
		if got := validModerationReasonCode(code); got != want {
			t.Errorf("validModerationReasonCode(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestValidUserStatus(t *testing.T) {
	cases := map[domain.UserStatus]bool{
		domain.UserStatusActive:          true,
		domain.UserStatusDisabled:        true,
		domain.UserStatusPendingDeletion: true,
		domain.UserStatus("bogus"):       false,
	}
	for status, want := range cases {
		if got := validUserStatus(status); got != want {
			t.Errorf("validUserStatus(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestPageSizeDefaultsAndCaps(t *testing.T) {
	c := &Core{cfg: config.AdminConfig{DefaultPageSize: 25, MaxPageSize: 100}}

	if got := c.pageSize(0); got != 25 {
		t.Errorf("pageSize(0) = %d, want 25 (default)", got)
	}
	if got := c.pageSize(-5); got != 25 {
		t.Errorf("pageSize(-5) = %d, want 25 (default)", got)
	}
	if got := c.pageSize(50); got != 50 {
		t.Errorf("pageSize(50) = %d, want 50 (requested)", got)
	}
	if got := c.pageSize(500); got != 100 {
		t.Errorf("pageSize(500) = %d, want 100 (capped)", got)
	}
}
