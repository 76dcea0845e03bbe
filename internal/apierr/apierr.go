// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package apierr defines the tagged domain error variants surfaced by core
// services (auth, track, playlist, upload, admin). Each variant carries the
// minimum context its response extensions need; internal/api's
// WriteDomainError translates a variant into the API's JSON error envelope
// (APIResponse with an APIError body) centrally rather than at each call
// site. The response body is that envelope, not an RFC 7807 problem+json
// document.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, machine-readable error category. It determines the
// HTTP status a central translator maps the error to.
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindInvalidToken        Kind = "invalid_token"
	KindAccountDisabled     Kind = "account_disabled"
	KindAccountLocked       Kind = "account_locked"
	KindSessionLimitExceeded Kind = "session_limit_exceeded"
	KindAccessDenied        Kind = "access_denied"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindRestorationExpired  Kind = "restoration_expired"
	KindRateLimitExceeded   Kind = "rate_limit_exceeded"
	KindServiceUnavailable  Kind = "service_unavailable"
	KindInternal            Kind = "internal"
)

// httpStatus maps each Kind to the status code internal/api's
// WriteDomainError writes.
var httpStatus = map[Kind]int{
	KindValidation:           http.StatusBadRequest,
	KindInvalidCredentials:   http.StatusUnauthorized,
	KindInvalidToken:         http.StatusUnauthorized,
	KindAccountDisabled:      http.StatusForbidden,
	KindAccountLocked:        http.StatusLocked,
	KindSessionLimitExceeded: http.StatusForbidden,
	KindAccessDenied:         http.StatusForbidden,
	KindNotFound:             http.StatusNotFound,
	KindConflict:             http.StatusConflict,
	KindRestorationExpired:   http.StatusGone,
	KindRateLimitExceeded:    http.StatusTooManyRequests,
	KindServiceUnavailable:   http.StatusServiceUnavailable,
	KindInternal:             http.StatusInternalServerError,
}

// Code is the stable short identifier within a Kind (e.g. "TrackDeleted",
// "QuotaExceeded"). It becomes the "code" field of the API error body.
type Code string

const (
	CodeTrackNotFound          Code = "TrackNotFound"
	CodePlaylistNotFound       Code = "PlaylistNotFound"
	CodeUserNotFound           Code = "UserNotFound"
	CodeUploadSessionNotFound  Code = "UploadSessionNotFound"
	CodeTrackDeleted           Code = "TrackDeleted"
	CodeTrackAlreadyDeleted    Code = "TrackAlreadyDeleted"
	CodeTrackNotDeleted        Code = "TrackNotDeleted"
	CodePlaylistConcurrency    Code = "PlaylistConcurrency"
	CodeTrackConcurrency       Code = "TrackConcurrency"
	CodeQuotaExceeded          Code = "QuotaExceeded"
	CodeRestorationExpired     Code = "RestorationExpired"
	CodeCursorExpired          Code = "CursorExpired"
	CodeInvalidPosition        Code = "InvalidPosition"
	CodeUnsupportedMimeType    Code = "UnsupportedMimeType"
	CodeFileTooLarge           Code = "FileTooLarge"
	CodeInvalidFileName        Code = "InvalidFileName"
	CodeRateLimitExceeded      Code = "RateLimitExceeded"
	CodeServiceUnavailable     Code = "ServiceUnavailable"
	CodeAccessDenied           Code = "AccessDenied"
	CodeInvalidModerationReason Code = "InvalidModerationReason"
	CodeInvalidUserStatus       Code = "InvalidUserStatus"
	CodeUserConcurrency         Code = "UserConcurrency"
	CodeInvalidCredentials      Code = "InvalidCredentials"
	CodeAccountDisabled         Code = "AccountDisabled"
	CodeInvalidToken            Code = "InvalidToken"
	CodeSessionLimitExceeded    Code = "SessionLimitExceeded"
	CodeEmailTaken              Code = "EmailTaken"
	CodeAccountLocked           Code = "AccountLocked"
	CodeWeakPassword            Code = "WeakPassword"
)

// Error is a tagged domain error: a Kind for HTTP-status translation, a Code
// for the error body's "code" field, a human Detail, and free-form
// Extensions rendered as the error body's "details" object.
type Error struct {
	Kind       Kind
	Code       Code
	Detail     string
	Extensions map[string]any
	Cause      error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus returns the status code this error's Kind maps to.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds a tagged Error with no extensions.
func New(kind Kind, code Code, detail string) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail}
}

// WithExtension returns a copy of e with the given extension key set.
func (e *Error) WithExtension(key string, value any) *Error {
	cp := *e
	cp.Extensions = make(map[string]any, len(e.Extensions)+1)
	for k, v := range e.Extensions {
		cp.Extensions[k] = v
	}
	cp.Extensions[key] = value
	return &cp
}

// WithCause attaches the underlying error for logging/unwrapping without
// exposing it to the client.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

// As is a convenience wrapper around errors.As for extracting an *Error.
func As(err error) (*Error, bool) {
	var target *Error
	ok := errors.As(err, &target)
	return target, ok
}

// Constructors for the errors named throughout the component contracts.

func NotFound(code Code, detail string) *Error {
	return New(KindNotFound, code, detail)
}

func Conflict(code Code, detail string) *Error {
	return New(KindConflict, code, detail)
}

func Validation(code Code, detail string) *Error {
	return New(KindValidation, code, detail)
}

func AccessDenied(detail string) *Error {
	return New(KindAccessDenied, CodeAccessDenied, detail)
}

func ServiceUnavailable(detail string) *Error {
	return New(KindServiceUnavailable, CodeServiceUnavailable, detail)
}

// QuotaExceeded builds the Conflict variant carrying the three extensions
// the quota-enforcement scenario requires.
func QuotaExceeded(usedBytes, quotaBytes, requestedBytes int64) *Error {
	return Conflict(CodeQuotaExceeded, "storage quota would be exceeded").
		WithExtension("usedBytes", usedBytes).
		WithExtension("quotaBytes", quotaBytes).
		WithExtension("requestedBytes", requestedBytes)
}

// RateLimitExceeded builds the rate-limit variant carrying the Retry-After hint.
func RateLimitExceeded(retryAfterSeconds int) *Error {
	return New(KindRateLimitExceeded, CodeRateLimitExceeded, "too many requests").
		WithExtension("retryAfterSeconds", retryAfterSeconds)
}

// InvalidCredentials builds the variant returned for a failed login attempt,
// deliberately vague about whether the email or password was wrong.
func InvalidCredentials() *Error {
	return New(KindInvalidCredentials, CodeInvalidCredentials, "invalid email or password")
}

// AccountDisabled builds the variant returned when a disabled or
// pending-deletion account attempts to authenticate.
func AccountDisabled() *Error {
	return New(KindAccountDisabled, CodeAccountDisabled, "account is disabled")
}

// AccountLocked builds the variant returned while a login-failure lockout is
// active, carrying the Retry-After hint.
func AccountLocked(retryAfterSeconds int) *Error {
	return New(KindAccountLocked, CodeAccountLocked, "account temporarily locked after too many failed attempts").
		WithExtension("retryAfterSeconds", retryAfterSeconds)
}

// InvalidToken builds the variant returned for an expired, malformed, or
// already-rotated/revoked access or refresh token.
func InvalidToken(detail string) *Error {
	return New(KindInvalidToken, CodeInvalidToken, detail)
}

// SessionLimitExceeded builds the variant noting the oldest session was
// evicted rather than rejecting the new login outright.
func SessionLimitExceeded() *Error {
	return New(KindSessionLimitExceeded, CodeSessionLimitExceeded, "active session limit reached, oldest session revoked")
}

// EmailTaken builds the variant returned when registration targets an
// email already bound to an account.
func EmailTaken() *Error {
	return Conflict(CodeEmailTaken, "an account with this email already exists")
}
