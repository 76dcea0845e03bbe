// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf/providers/structs"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 3857 {
		t.Errorf("Server.Port = %d, want 3857", cfg.Server.Port)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("Server.Environment = %q, want development", cfg.Server.Environment)
	}

	if !cfg.NATS.Enabled {
		t.Error("NATS.Enabled should be true by default")
	}
	if cfg.NATS.URL != "nats://127.0.0.1:4222" {
		t.Errorf("NATS.URL = %q, want nats://127.0.0.1:4222", cfg.NATS.URL)
	}

	if cfg.DynamoDB.TableName != "novatune" {
		t.Errorf("DynamoDB.TableName = %q, want novatune", cfg.DynamoDB.TableName)
	}
	if cfg.S3.Bucket != "novatune-audio" {
		t.Errorf("S3.Bucket = %q, want novatune-audio", cfg.S3.Bucket)
	}
	if cfg.Redis.Address != "127.0.0.1:6379" {
		t.Errorf("Redis.Address = %q, want 127.0.0.1:6379", cfg.Redis.Address)
	}
	if cfg.Upload.MaxFileSizeBytes != 500<<20 {
		t.Errorf("Upload.MaxFileSizeBytes = %d, want %d", cfg.Upload.MaxFileSizeBytes, int64(500<<20))
	}
	if cfg.Processor.Concurrency != 2 {
		t.Errorf("Processor.Concurrency = %d, want 2", cfg.Processor.Concurrency)
	}
	if cfg.Track.DefaultPageSize != 25 {
		t.Errorf("Track.DefaultPageSize = %d, want 25", cfg.Track.DefaultPageSize)
	}
	if cfg.Playlist.MaxTracksPerPlaylist != 5000 {
		t.Errorf("Playlist.MaxTracksPerPlaylist = %d, want 5000", cfg.Playlist.MaxTracksPerPlaylist)
	}
	if cfg.Lifecycle.DeletionGracePeriod != 30*24*time.Hour {
		t.Errorf("Lifecycle.DeletionGracePeriod = %v, want 720h", cfg.Lifecycle.DeletionGracePeriod)
	}
	if cfg.Telemetry.ConsumerConcurrency != 4 {
		t.Errorf("Telemetry.ConsumerConcurrency = %d, want 4", cfg.Telemetry.ConsumerConcurrency)
	}
	if cfg.Auth.Issuer != "novatune" {
		t.Errorf("Auth.Issuer = %q, want novatune", cfg.Auth.Issuer)
	}
	if cfg.Auth.Argon2MemoryKB != 65536 {
		t.Errorf("Auth.Argon2MemoryKB = %d, want 65536", cfg.Auth.Argon2MemoryKB)
	}
	if cfg.Admin.DefaultPageSize != 25 {
		t.Errorf("Admin.DefaultPageSize = %d, want 25", cfg.Admin.DefaultPageSize)
	}
}

func TestFindConfigFile_None(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	if path := findConfigFile(); path != "" {
		t.Errorf("expected no config file found, got %q", path)
	}
}

func TestFindConfigFile_LocalYAML(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 8080\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if path := findConfigFile(); path != "config.yaml" {
		t.Errorf("expected config.yaml, got %q", path)
	}
}

func TestFindConfigFile_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(custom, []byte("server:\n  port: 9999\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	setEnv(t, ConfigPathEnvVar, custom)

	if path := findConfigFile(); path != custom {
		t.Errorf("expected %q, got %q", custom, path)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"JWT_SECRET", "security.jwt_secret"},
		{"NATS_URL", "nats.url"},
		{"DYNAMODB_TABLE_NAME", "dynamodb.table_name"},
		{"S3_BUCKET", "s3.bucket"},
		{"REDIS_ADDRESS", "redis.address"},
		{"FFPROBE_PATH", "processor.ffprobe_path"},
		{"ACCESS_TOKEN_TTL", "auth.access_token_ttl"},
		{"UNKNOWN_RANDOM_VAR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestProcessSliceFields_CommaSeparated(t *testing.T) {
	k := GetKoanfInstance()
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if err := k.Set("security.cors_origins", "https://a.example.com,https://b.example.com"); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := processSliceFields(k); err != nil {
		t.Fatalf("processSliceFields: %v", err)
	}

	origins := k.Strings("security.cors_origins")
	if len(origins) != 2 || origins[0] != "https://a.example.com" || origins[1] != "https://b.example.com" {
		t.Errorf("unexpected cors_origins after processing: %v", origins)
	}
}

func TestLoad_EnvOverridesDynamoDBAndS3(t *testing.T) {
	setEnv(t, "JWT_SECRET", "a-secure-test-secret-at-least-32-chars-long")
	setEnv(t, "DYNAMODB_TABLE_NAME", "novatune-test")
	setEnv(t, "S3_BUCKET", "novatune-test-audio")
	setEnv(t, "S3_FORCE_PATH_STYLE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.DynamoDB.TableName != "novatune-test" {
		t.Errorf("DynamoDB.TableName = %q, want novatune-test", cfg.DynamoDB.TableName)
	}
	if cfg.S3.Bucket != "novatune-test-audio" {
		t.Errorf("S3.Bucket = %q, want novatune-test-audio", cfg.S3.Bucket)
	}
	if !cfg.S3.ForcePathStyle {
		t.Error("expected S3.ForcePathStyle true")
	}
}
