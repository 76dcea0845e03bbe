// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package resilience

import "time"

// Config is the decorator configuration Wrap/WrapPlaylist apply to every
// call: a per-call deadline on top of the caller's context, and the
// circuit breaker that trips once the wrapped core starts failing.
type Config struct {
	Timeout        time.Duration
	CircuitBreaker CircuitBreakerConfig
}

// DefaultConfig returns production defaults: a 5s per-call timeout and the
// standard circuit breaker settings, named after the service being wrapped.
func DefaultConfig(name string) Config {
	return Config{
		Timeout:        5 * time.Second,
		CircuitBreaker: DefaultCircuitBreakerConfig(name),
	}
}
