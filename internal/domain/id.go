// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package domain

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

// entropy is a single monotonic source shared by every NewID call so IDs
// minted within the same millisecond still sort lexically in mint order.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID mints a new 26-character ULID for any entity in this package.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
