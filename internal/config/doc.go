// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

/*
Package config provides centralized configuration management for the
NovaTune backend.

This package handles loading, validation, and parsing of configuration for
all five binaries (cmd/api, cmd/ingestor, cmd/processor, cmd/telemetry,
cmd/lifecycle). It ensures consistent configuration across services and
provides sensible defaults for optional settings.

# Configuration Sources

Layered via Koanf v2, in increasing precedence:

  - Built-in defaults (defaultConfig)
  - An optional YAML config file (config.yaml, or CONFIG_PATH)
  - Environment variables

# Configuration Structure

  - ServerConfig: HTTP listener bind settings
  - APIConfig: default pagination bounds
  - SecurityConfig: JWT signing key, rate limiting, CORS
  - LoggingConfig: zerolog level/format/caller
  - NATSConfig: message bus feature flag and connection URL
  - DynamoDBConfig / S3Config / RedisConfig: document store, object store, cache
  - UploadConfig / ProcessorConfig / TrackConfig / PlaylistConfig: per-core limits
  - LifecycleConfig / TelemetryConfig / AdminConfig: background workers and admin API bounds
  - AuthConfig: JWT issuance, Argon2id parameters, login rate limits

# Environment Variables

Key environment variables:

	HTTP_PORT, HTTP_HOST, HTTP_TIMEOUT, ENVIRONMENT
	JWT_SECRET, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, CORS_ORIGINS, TRUSTED_PROXIES
	LOG_LEVEL, LOG_FORMAT, LOG_CALLER
	NATS_ENABLED, NATS_URL
	DYNAMODB_TABLE_NAME, DYNAMODB_REGION, DYNAMODB_ENDPOINT
	S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_FORCE_PATH_STYLE
	REDIS_ADDRESS, REDIS_PASSWORD, REDIS_DB, REDIS_ENCRYPTION_KEYS
	UPLOAD_MAX_FILE_SIZE_BYTES, UPLOAD_ALLOWED_MIME_TYPES, UPLOAD_SESSION_TTL
	FFPROBE_PATH, FFMPEG_PATH, PROCESSOR_ALLOWED_CODECS, PROCESSOR_CONCURRENCY
	ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL, ARGON2_MEMORY_KB, ARGON2_ITERATIONS

See envTransformFunc in koanf.go for the complete mapping.

# Usage Example

	import "github.com/novatune/backend/internal/config"

	cfg, err := config.Load()
	if err != nil {
	    log.Fatalf("failed to load config: %v", err)
	}
	fmt.Printf("Starting server on %s:%d\n", cfg.Server.Host, cfg.Server.Port)

# Validation

Validate() is called automatically by Load() and checks:

  - server.port in range, server.host non-empty
  - nats.url is a valid nats/tls/ws/wss URL (only if nats.enabled)
  - s3.endpoint is a valid http(s) URL (only if set)
  - security.jwt_secret is present, ≥32 chars, and not a placeholder value
  - security.cors_origins rejects wildcard "*" in production
  - security.rate_limit_reqs/window are within sane bounds
  - logging.level/format are recognized values

# Thread Safety

The Config struct is immutable after Load() returns, making it safe for
concurrent access from multiple goroutines without synchronization.
*/
package config
