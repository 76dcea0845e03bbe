// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/novatune/config.yaml",
	"/etc/novatune/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        3857,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			JWTSecret:         "",
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			TrustedProxies:    []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		NATS: NATSConfig{
			Enabled: true,
			URL:     "nats://127.0.0.1:4222",
		},
		DynamoDB:  defaultDynamoDB(),
		S3:        defaultS3(),
		Redis:     defaultRedis(),
		Upload:    defaultUpload(),
		Processor: defaultProcessor(),
		Track:     defaultTrack(),
		Playlist:  defaultPlaylist(),
		Lifecycle: defaultLifecycle(),
		Telemetry: defaultTelemetry(),
		Auth:      defaultAuth(),
		Admin:     defaultAdmin(),
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config File: optional YAML config file (if exists)
//  3. Environment Variables: override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths. Returns
// the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths should be parsed as
// comma-separated slices when they arrive as environment-variable strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
	"redis.encryption_keys",
	"upload.allowed_mime_types",
	"processor.allowed_codecs",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields; env vars arrive as strings but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config
// paths, e.g. JWT_SECRET -> security.jwt_secret. Unmapped variables are
// dropped so unrelated host environment noise can't pollute the config.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"http_port":    "server.port",
		"http_host":    "server.host",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",

		"jwt_secret":          "security.jwt_secret",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",
		"cors_origins":        "security.cors_origins",
		"trusted_proxies":     "security.trusted_proxies",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		"nats_enabled": "nats.enabled",
		"nats_url":     "nats.url",

		"dynamodb_table_name": "dynamodb.table_name",
		"dynamodb_region":     "dynamodb.region",
		"dynamodb_endpoint":   "dynamodb.endpoint",

		"s3_bucket":           "s3.bucket",
		"s3_region":           "s3.region",
		"s3_endpoint":         "s3.endpoint",
		"s3_force_path_style": "s3.force_path_style",
		"s3_presign_put_ttl":  "s3.presign_put_ttl",
		"s3_presign_get_ttl":  "s3.presign_get_ttl",

		"redis_address":         "redis.address",
		"redis_password":        "redis.password",
		"redis_db":              "redis.db",
		"redis_dial_timeout":    "redis.dial_timeout",
		"redis_default_ttl":     "redis.default_ttl",
		"redis_encryption_keys": "redis.encryption_keys",

		"upload_max_file_size_bytes": "upload.max_file_size_bytes",
		"upload_allowed_mime_types":  "upload.allowed_mime_types",
		"upload_session_ttl":         "upload.session_ttl",
		"upload_sweep_interval":      "upload.sweep_interval",
		"upload_storage_quota_bytes": "upload.per_user_storage_quota_bytes",
		"upload_max_tracks_per_user": "upload.max_tracks_per_user",

		"ffprobe_path":              "processor.ffprobe_path",
		"ffmpeg_path":               "processor.ffmpeg_path",
		"processor_max_duration":    "processor.max_duration_seconds",
		"processor_min_duration":    "processor.min_duration_seconds",
		"processor_allowed_codecs":  "processor.allowed_codecs",
		"processor_waveform_points": "processor.waveform_points",
		"processor_timeout":         "processor.process_timeout",
		"processor_concurrency":     "processor.concurrency",

		"track_default_page_size":   "track.default_page_size",
		"track_max_page_size":       "track.max_page_size",
		"track_cursor_max_age":      "track.cursor_max_age",
		"track_stream_presign_ttl":  "track.stream_presign_ttl",
		"track_stream_refresh_buffer": "track.stream_refresh_buffer",
		"track_search_result_limit": "track.search_result_limit",

		"playlist_max_add_batch":            "playlist.max_add_batch",
		"playlist_max_tracks_per_playlist":  "playlist.max_tracks_per_playlist",
		"playlist_max_playlists_per_user":   "playlist.max_playlists_per_user",

		"lifecycle_sweep_interval":             "lifecycle.sweep_interval",
		"lifecycle_grace_period":               "lifecycle.deletion_grace_period",
		"lifecycle_backlog_threshold":           "lifecycle.degraded_backlog_threshold",
		"lifecycle_batch_size":                  "lifecycle.batch_size",
		"lifecycle_max_concurrency":             "lifecycle.max_concurrency",

		"telemetry_consumer_concurrency": "telemetry.consumer_concurrency",
		"telemetry_flush_interval":       "telemetry.flush_interval",

		"auth_issuer":                  "auth.issuer",
		"access_token_ttl":             "auth.access_token_ttl",
		"refresh_token_ttl":            "auth.refresh_token_ttl",
		"max_active_refresh_tokens":    "auth.max_active_refresh_tokens",
		"argon2_memory_kb":             "auth.argon2_memory_kb",
		"argon2_iterations":            "auth.argon2_iterations",
		"argon2_parallelism":           "auth.argon2_parallelism",
		"login_rate_limit_per_ip":      "auth.login_rate_limit_per_ip",
		"login_rate_limit_per_account": "auth.login_rate_limit_per_account",
		"login_rate_limit_window":      "auth.login_rate_limit_window",

		"admin_default_page_size": "admin.default_page_size",
		"admin_max_page_size":     "admin.max_page_size",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// GetKoanfInstance returns a new Koanf instance for advanced usage (e.g.
// tests constructing their own layered sources).
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// WatchConfigFile sets up a file watcher for hot-reload capability. The
// caller is responsible for mutex protection when swapping the live config
// on callback.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
