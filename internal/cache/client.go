// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/logging"
	"github.com/novatune/backend/internal/resilience"
)

// ErrMiss is returned by Get when the key is absent. Callers should treat
// Redis errors (breaker open, decrypt failure on a retired key) the same
// as a miss — see Get's fail-open contract.
var ErrMiss = errors.New("cache: miss")

// removeByPatternScript deletes every key matching a glob pattern in one
// round trip instead of SCAN-then-DEL from the client, avoiding a
// scan-iterate-delete race against concurrent writers.
const removeByPatternScript = `
local cursor = "0"
local removed = 0
repeat
  local result = redis.call("SCAN", cursor, "MATCH", ARGV[1], "COUNT", 200)
  cursor = result[1]
  local keys = result[2]
  if #keys > 0 then
    removed = removed + redis.call("DEL", unpack(keys))
  end
until cursor == "0"
return removed
`

// Client is the encrypted, circuit-broken Redis cache used for presigned
// stream URLs and other derived values cheap to recompute on a miss.
type Client struct {
	rdb        *redis.Client
	breaker    *gobreaker.CircuitBreaker[interface{}]
	keyring    *keyring
	defaultTTL time.Duration
}

// New constructs a Client from cfg. EncryptionKeys must contain at least
// one 32-byte hex-encoded key.
func New(cfg config.RedisConfig) (*Client, error) {
	kr, err := newKeyring(cfg.EncryptionKeys)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("cache.redis"))
	return &Client{rdb: rdb, breaker: breaker, keyring: kr, defaultTTL: cfg.DefaultTTL}, nil
}

// Set encrypts value (JSON-marshaled) and writes it under key with ttl (or
// the configured default if ttl is zero). A Redis failure is logged and
// swallowed: a write-cache-aside miss just means the next Get recomputes.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	plaintext, err := json.Marshal(value)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("cache: marshal value failed")
		return
	}
	envelope, err := c.keyring.seal(plaintext)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("cache: encrypt value failed")
		return
	}
	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.rdb.Set(ctx, key, envelope, ttl).Err()
	})
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("cache: set failed, continuing without cache")
	}
}

// Get decrypts and unmarshals the value stored at key into dst. Returns
// ErrMiss on absence, a breaker-open Redis, or a value encrypted under a
// retired key — every case where the caller should fall through to
// recomputing the value rather than failing the request.
func (c *Client) Get(ctx context.Context, key string, dst any) error {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.rdb.Get(ctx, key).Bytes()
	})
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Warn().Err(err).Str("key", key).Msg("cache: get failed, treating as miss")
		}
		return ErrMiss
	}
	envelope, _ := result.([]byte)
	plaintext, err := c.keyring.open(envelope)
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("cache: decrypt failed, treating as miss")
		return ErrMiss
	}
	if err := json.Unmarshal(plaintext, dst); err != nil {
		return ErrMiss
	}
	return nil
}

// Delete removes a single key.
func (c *Client) Delete(ctx context.Context, key string) {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.rdb.Del(ctx, key).Err()
	})
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("cache: delete failed")
	}
}

// RemoveByPattern deletes every key matching a glob pattern (e.g.
// "stream:track123:*") via a single SCAN+DEL Lua script, used when a
// track's streamability changes (soft delete, moderation) and every cached
// presigned URL for it must be invalidated at once.
func (c *Client) RemoveByPattern(ctx context.Context, pattern string) {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return c.rdb.Eval(ctx, removeByPatternScript, nil, pattern).Result()
	})
	if err != nil {
		logging.Warn().Err(err).Str("pattern", pattern).Msg("cache: remove by pattern failed")
	}
}

// Close releases the underlying Redis connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
