// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package resilience

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/novatune/backend/internal/domain"
	"github.com/novatune/backend/internal/track"
)

// TrackCore is the subset of track.Core's exported surface Wrap decorates.
// Kept as an interface rather than depending on *track.Core directly so
// tests can wrap a fake.
type TrackCore interface {
	List(ctx context.Context, userID string, filter track.ListFilter) (*track.ListResult, error)
	Get(ctx context.Context, trackID, callerID string, isAdmin bool) (*domain.Track, error)
	Update(ctx context.Context, trackID, callerID string, isAdmin bool, req track.UpdateRequest) (*domain.Track, error)
	Delete(ctx context.Context, trackID, callerID string, isAdmin bool, gracePeriod time.Duration) error
	Restore(ctx context.Context, trackID, callerID string, isAdmin bool) (*domain.Track, error)
	IssueStreamUrl(ctx context.Context, trackID, callerID string, isAdmin, ownerDisabled bool) (*track.StreamURL, error)
}

type trackCoreWrapper struct {
	next TrackCore
	cb   *gobreaker.CircuitBreaker[interface{}]
	cfg  Config
}

// Wrap returns a TrackCore that runs every call of next through a per-call
// timeout and a circuit breaker, tripping the breaker on the document
// store or object store backing next becoming unhealthy rather than
// letting every caller queue up behind a slow dependency.
func Wrap(next TrackCore, cfg Config) TrackCore {
	return &trackCoreWrapper{next: next, cb: NewCircuitBreaker(cfg.CircuitBreaker), cfg: cfg}
}

func (w *trackCoreWrapper) List(ctx context.Context, userID string, filter track.ListFilter) (*track.ListResult, error) {
	return execute(ctx, w.cb, w.cfg.Timeout, func(cctx context.Context) (*track.ListResult, error) {
		return w.next.List(cctx, userID, filter)
	})
}

func (w *trackCoreWrapper) Get(ctx context.Context, trackID, callerID string, isAdmin bool) (*domain.Track, error) {
	return execute(ctx, w.cb, w.cfg.Timeout, func(cctx context.Context) (*domain.Track, error) {
		return w.next.Get(cctx, trackID, callerID, isAdmin)
	})
}

func (w *trackCoreWrapper) Update(ctx context.Context, trackID, callerID string, isAdmin bool, req track.UpdateRequest) (*domain.Track, error) {
	return execute(ctx, w.cb, w.cfg.Timeout, func(cctx context.Context) (*domain.Track, error) {
		return w.next.Update(cctx, trackID, callerID, isAdmin, req)
	})
}

func (w *trackCoreWrapper) Delete(ctx context.Context, trackID, callerID string, isAdmin bool, gracePeriod time.Duration) error {
	_, err := execute(ctx, w.cb, w.cfg.Timeout, func(cctx context.Context) (struct{}, error) {
		return struct{}{}, w.next.Delete(cctx, trackID, callerID, isAdmin, gracePeriod)
	})
	return err
}

func (w *trackCoreWrapper) Restore(ctx context.Context, trackID, callerID string, isAdmin bool) (*domain.Track, error) {
	return execute(ctx, w.cb, w.cfg.Timeout, func(cctx context.Context) (*domain.Track, error) {
		return w.next.Restore(cctx, trackID, callerID, isAdmin)
	})
}

func (w *trackCoreWrapper) IssueStreamUrl(ctx context.Context, trackID, callerID string, isAdmin, ownerDisabled bool) (*track.StreamURL, error) {
	return execute(ctx, w.cb, w.cfg.Timeout, func(cctx context.Context) (*track.StreamURL, error) {
		return w.next.IssueStreamUrl(cctx, trackID, callerID, isAdmin, ownerDisabled)
	})
}
