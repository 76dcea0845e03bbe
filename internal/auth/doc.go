// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package auth implements the account core behind the /auth/* routes:
// Argon2id password hashing, HS256 access-token issuance and validation,
// opaque hashed refresh-token rotation with a per-user active-session cap,
// and the per-IP/per-account login rate limit and exponential-backoff
// account lockout that guard the login endpoint. Authorization (role and
// ownership checks against an already-validated AuthSubject) lives in the
// HTTP middleware built on top of this package, not here.
package auth
