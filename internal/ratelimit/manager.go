// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package ratelimit

import (
	"sync"
	"time"
)

// numBuckets controls the sliding window's resolution; 12 buckets gives a
// 1-minute window 5s granularity, which is plenty for login/route limits.
const numBuckets = 12

// Policy names a {permitLimit, window} pair identified by name, matching
// the policy-per-route model every protected endpoint declares.
type Policy struct {
	Name        string
	PermitLimit int64
	Window      time.Duration
}

// Manager holds one sliding-window store per distinct policy, lazily
// created on first use so callers don't need to pre-register every policy.
type Manager struct {
	mu     sync.Mutex
	stores map[string]*SlidingWindowStore
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{stores: make(map[string]*SlidingWindowStore)}
}

func (m *Manager) storeFor(p Policy) *SlidingWindowStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[p.Name]
	if !ok {
		s = NewSlidingWindowStore(p.Window, numBuckets, 0)
		m.stores[p.Name] = s
	}
	return s
}

// Allow increments identity's counter under policy and reports whether the
// request is still within the permit limit. On rejection it also returns
// the remaining window duration as a Retry-After hint.
func (m *Manager) Allow(p Policy, identity string) (bool, time.Duration) {
	store := m.storeFor(p)
	store.Increment(identity)
	if store.Count(identity) > p.PermitLimit {
		return false, p.Window
	}
	return true, 0
}

// LoginPolicies are the two limiters spec §6 chains on the login endpoint:
// per-client-IP and per-account, both within a 1-minute window. Both must
// permit for a login attempt to proceed.
type LoginPolicies struct {
	PerIP      Policy
	PerAccount Policy
}

// AllowLogin evaluates both login limiters, returning the longer of any
// rejecting policy's Retry-After hint.
func (m *Manager) AllowLogin(policies LoginPolicies, ip, email string) (bool, time.Duration) {
	ipOK, ipRetry := m.Allow(policies.PerIP, "ip:"+ip)
	acctOK, acctRetry := m.Allow(policies.PerAccount, "acct:"+email)
	if ipOK && acctOK {
		return true, 0
	}
	retry := ipRetry
	if acctRetry > retry {
		retry = acctRetry
	}
	return false, retry
}
