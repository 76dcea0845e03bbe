// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package api

import (
	"errors"
	"net/http"

	"github.com/novatune/backend/internal/apierr"
	"github.com/novatune/backend/internal/logging"
)

// WriteDomainError translates err into an APIResponse error body. A tagged
// *apierr.Error is rendered using its Kind's HTTP status, Code, and
// Extensions; any other error is logged with its detail hidden from the
// client and rendered as a 500.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var tagged *apierr.Error
	if errors.As(err, &tagged) {
		WriteDomainErrorValue(w, r, tagged)
		return
	}
	logging.CtxErr(r.Context(), err).Msg("api: unhandled error")
	NewResponseWriter(w, r).InternalError("an internal error occurred")
}

// WriteDomainErrorValue renders an already-typed *apierr.Error, including
// its Extensions (e.g. retryAfterSeconds, quota fields) in the response.
func WriteDomainErrorValue(w http.ResponseWriter, r *http.Request, tagged *apierr.Error) {
	if tagged.Kind == apierr.KindInternal || tagged.Kind == apierr.KindServiceUnavailable {
		logging.CtxErr(r.Context(), tagged).Str("code", string(tagged.Code)).Msg("api: domain error")
	}
	var details interface{}
	if len(tagged.Extensions) > 0 {
		details = tagged.Extensions
	}
	NewResponseWriter(w, r).ErrorWithDetails(tagged.HTTPStatus(), string(tagged.Code), tagged.Detail, details)
}
