// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package apierr

import (
	"errors"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindInvalidCredentials, http.StatusUnauthorized},
		{KindAccessDenied, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindRestorationExpired, http.StatusGone},
		{KindRateLimitExceeded, http.StatusTooManyRequests},
		{KindServiceUnavailable, http.StatusServiceUnavailable},
		{KindInternal, http.StatusInternalServerError},
		{Kind("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			e := New(tt.kind, CodeAccessDenied, "")
			if got := e.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWithExtension(t *testing.T) {
	base := New(KindConflict, CodeQuotaExceeded, "over quota")
	extended := base.WithExtension("usedBytes", int64(100))

	if len(base.Extensions) != 0 {
		t.Error("WithExtension must not mutate the receiver")
	}
	if extended.Extensions["usedBytes"] != int64(100) {
		t.Errorf("Extensions[usedBytes] = %v, want 100", extended.Extensions["usedBytes"])
	}
}

func TestQuotaExceeded(t *testing.T) {
	e := QuotaExceeded(99_999_999, 100_000_000, 2)
	if e.Kind != KindConflict {
		t.Errorf("Kind = %s, want %s", e.Kind, KindConflict)
	}
	if e.Extensions["usedBytes"] != int64(99_999_999) {
		t.Errorf("usedBytes = %v", e.Extensions["usedBytes"])
	}
	if e.Extensions["quotaBytes"] != int64(100_000_000) {
		t.Errorf("quotaBytes = %v", e.Extensions["quotaBytes"])
	}
	if e.Extensions["requestedBytes"] != int64(2) {
		t.Errorf("requestedBytes = %v", e.Extensions["requestedBytes"])
	}
}

func TestRateLimitExceeded(t *testing.T) {
	e := RateLimitExceeded(5)
	if e.HTTPStatus() != http.StatusTooManyRequests {
		t.Errorf("HTTPStatus() = %d, want 429", e.HTTPStatus())
	}
	if e.Extensions["retryAfterSeconds"] != 5 {
		t.Errorf("retryAfterSeconds = %v, want 5", e.Extensions["retryAfterSeconds"])
	}
}

func TestAsAndUnwrap(t *testing.T) {
	cause := errors.New("store timeout")
	e := ServiceUnavailable("store unavailable").WithCause(cause)

	wrapped := errors.New("wrapper") // sanity: non-apierr errors don't match
	if _, ok := As(wrapped); ok {
		t.Error("expected As to fail for a plain error")
	}

	var target error = e
	got, ok := As(target)
	if !ok {
		t.Fatal("expected As to find the *Error")
	}
	if !errors.Is(got.Unwrap(), cause) {
		t.Error("expected Unwrap to return the cause")
	}
}

func TestErrorString(t *testing.T) {
	e := NotFound(CodeTrackNotFound, "track abc123 not found")
	if e.Error() != "TrackNotFound: track abc123 not found" {
		t.Errorf("Error() = %q", e.Error())
	}

	bare := New(KindInternal, CodeAccessDenied, "")
	if bare.Error() != string(CodeAccessDenied) {
		t.Errorf("Error() = %q, want %q", bare.Error(), CodeAccessDenied)
	}
}
