// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package resilience

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// execute runs fn under a per-call timeout and through cb, adapting the
// interface{}-typed breaker's result back to T. Shared by every Wrap*
// decorator so each only has to supply the method signatures being
// wrapped, not its own timeout/breaker plumbing.
func execute[T any](ctx context.Context, cb *gobreaker.CircuitBreaker[interface{}], timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := cb.Execute(func() (interface{}, error) {
		return fn(cctx)
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}
