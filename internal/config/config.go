// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package config

import "time"

// Config holds all application configuration loaded from environment
// variables and an optional config file. The five binaries (cmd/api,
// cmd/ingestor, cmd/processor, cmd/telemetry, cmd/lifecycle) all call
// Load() and read the sections relevant to what they run.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config File: optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: override any setting via environment variables
//
// Configuration Categories:
//
//  1. Infrastructure:
//     - DynamoDB/S3/Redis: the document store, object store, and cache adapters
//     - NATS: the message bus (Watermill/JetStream) feature flag and URL
//     - Server: HTTP server bind settings
//
//  2. Domain:
//     - Upload/Processor/Track/Playlist/Lifecycle/Telemetry/Admin: per-core limits
//     - Auth: JWT issuance, Argon2id parameters, login rate limits
//
//  3. Observability:
//     - Logging: zerolog level/format/caller settings
//
// Config is immutable after Load() and safe for concurrent read access from
// multiple goroutines.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	NATS     NATSConfig     `koanf:"nats"`

	DynamoDB  DynamoDBConfig  `koanf:"dynamodb"`
	S3        S3Config        `koanf:"s3"`
	Redis     RedisConfig     `koanf:"redis"`
	Upload    UploadConfig    `koanf:"upload"`
	Processor ProcessorConfig `koanf:"processor"`
	Track     TrackConfig     `koanf:"track"`
	Playlist  PlaylistConfig  `koanf:"playlist"`
	Lifecycle LifecycleConfig `koanf:"lifecycle"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Auth      AuthConfig      `koanf:"auth"`
	Admin     AdminConfig     `koanf:"admin"`
}

// NATSConfig is the messaging feature flag (spec §6 "feature flags:
// messagingEnabled") plus the connection URL every internal/bus.NewPublisher
// / NewSubscriber call needs. Topic names, retry policy, and consumer
// worker counts are per-call arguments (internal/bus.Topics,
// bus.DefaultSubscriberConfig) rather than global config, since each worker
// tunes them to its own contract (spec §4.2).
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

// ServerConfig holds the API binary's HTTP listener settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // "development", "staging", "production"
}

// APIConfig holds API-wide pagination defaults; individual cores
// (TrackConfig, PlaylistConfig, AdminConfig) override these with their own
// page-size limits where the spec calls for different bounds.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds the cross-cutting HTTP security settings: the JWT
// signing key (internal/auth.JWTManager), the per-endpoint rate limiter
// defaults (internal/ratelimit), and CORS.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from environment variables and an optional
// config file, in that precedence order (env wins). See LoadWithKoanf for
// the underlying layered implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	switch c.Server.Environment {
	case "production", "prod":
		return true
	default:
		return false
	}
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	switch c.Server.Environment {
	case "", "development", "dev":
		return true
	default:
		return false
	}
}
