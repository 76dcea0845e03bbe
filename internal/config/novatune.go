// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package config

import "time"

// DynamoDBConfig points the document-store adapter (internal/docstore) at
// its single application table.
type DynamoDBConfig struct {
	TableName string `koanf:"table_name"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"` // non-empty only for local DynamoDB-compatible testing
}

// S3Config points the object-store adapter (internal/objectstore) at the
// bucket holding audio originals and generated waveforms.
type S3Config struct {
	Bucket            string        `koanf:"bucket"`
	Region            string        `koanf:"region"`
	Endpoint          string        `koanf:"endpoint"` // non-empty only for S3-compatible self-hosted object storage
	ForcePathStyle    bool          `koanf:"force_path_style"`
	PresignPutTTL     time.Duration `koanf:"presign_put_ttl"`
	PresignGetTTL     time.Duration `koanf:"presign_get_ttl"`
}

// RedisConfig points the encrypted presigned-URL cache (internal/cache) at
// its backing Redis instance.
type RedisConfig struct {
	Address      string        `koanf:"address"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	DefaultTTL   time.Duration `koanf:"default_ttl"`
	// EncryptionKeys is the key-version-ordered set of AES-256 keys cache
	// values are encrypted under; index 0 is the active write key, later
	// indexes are retained only to decrypt values written under them during
	// a rotation window. Hex-encoded, 32 bytes each.
	EncryptionKeys []string `koanf:"encryption_keys"`
}

// UploadConfig governs Upload.Initiate and Upload.Sweep.
type UploadConfig struct {
	MaxFileSizeBytes     int64         `koanf:"max_file_size_bytes"`
	AllowedMimeTypes     []string      `koanf:"allowed_mime_types"`
	SessionTTL           time.Duration `koanf:"session_ttl"`
	SweepInterval        time.Duration `koanf:"sweep_interval"`
	PerUserStorageQuota  int64         `koanf:"per_user_storage_quota_bytes"`
	MaxTracksPerUser     int           `koanf:"max_tracks_per_user"`
}

// ProcessorConfig governs the audio processor worker's ffprobe/ffmpeg
// invocations.
type ProcessorConfig struct {
	FfprobePath           string        `koanf:"ffprobe_path"`
	FfmpegPath            string        `koanf:"ffmpeg_path"`
	MaxDurationSeconds    float64       `koanf:"max_duration_seconds"`
	MinDurationSeconds    float64       `koanf:"min_duration_seconds"`
	AllowedCodecs         []string      `koanf:"allowed_codecs"`
	WaveformPoints        int           `koanf:"waveform_points"`
	ProcessTimeout        time.Duration `koanf:"process_timeout"`
	Concurrency           int           `koanf:"concurrency"`
}

// TrackConfig governs the Track core's listing, update, and stream-issuance
// operations.
type TrackConfig struct {
	DefaultPageSize     int32         `koanf:"default_page_size"`
	MaxPageSize         int32         `koanf:"max_page_size"`
	CursorMaxAge        time.Duration `koanf:"cursor_max_age"`
	StreamPresignTTL    time.Duration `koanf:"stream_presign_ttl"`
	StreamRefreshBuffer time.Duration `koanf:"stream_refresh_buffer"`
	SearchResultLimit   int           `koanf:"search_result_limit"`
}

// PlaylistConfig governs the Playlist core's size and batch limits.
type PlaylistConfig struct {
	MaxAddBatch          int `koanf:"max_add_batch"`
	MaxTracksPerPlaylist int `koanf:"max_tracks_per_playlist"`
	MaxPlaylistsPerUser  int `koanf:"max_playlists_per_user"`
}

// LifecycleConfig governs the periodic deletion sweep.
type LifecycleConfig struct {
	SweepInterval            time.Duration `koanf:"sweep_interval"`
	DeletionGracePeriod      time.Duration `koanf:"deletion_grace_period"`
	DegradedBacklogThreshold int           `koanf:"degraded_backlog_threshold"`
	BatchSize                int           `koanf:"batch_size"`
	MaxConcurrency           int           `koanf:"max_concurrency"`
}

// TelemetryConfig governs the playback-event consumer.
type TelemetryConfig struct {
	ConsumerConcurrency int           `koanf:"consumer_concurrency"`
	FlushInterval       time.Duration `koanf:"flush_interval"`
}

// AuthConfig extends Security with the userId-based access/refresh token
// model (Security.JWTSecret remains the signing key) and the Argon2id
// parameters used to hash and verify user passwords.
type AuthConfig struct {
	Issuer                 string        `koanf:"issuer"`
	AccessTokenTTL         time.Duration `koanf:"access_token_ttl"`
	RefreshTokenTTL        time.Duration `koanf:"refresh_token_ttl"`
	MaxActiveRefreshTokens int           `koanf:"max_active_refresh_tokens"`

	Argon2MemoryKB     uint32 `koanf:"argon2_memory_kb"`
	Argon2Iterations   uint32 `koanf:"argon2_iterations"`
	Argon2Parallelism  uint8  `koanf:"argon2_parallelism"`
	Argon2SaltLength   uint32 `koanf:"argon2_salt_length"`
	Argon2KeyLength    uint32 `koanf:"argon2_key_length"`

	LoginRateLimitPerIP      int           `koanf:"login_rate_limit_per_ip"`
	LoginRateLimitPerAccount int           `koanf:"login_rate_limit_per_account"`
	LoginRateLimitWindow     time.Duration `koanf:"login_rate_limit_window"`
}

// AdminConfig governs the admin core's listing defaults.
type AdminConfig struct {
	DefaultPageSize int32 `koanf:"default_page_size"`
	MaxPageSize     int32 `koanf:"max_page_size"`
}

func defaultAdmin() AdminConfig {
	return AdminConfig{DefaultPageSize: 25, MaxPageSize: 100}
}

func defaultDynamoDB() DynamoDBConfig {
	return DynamoDBConfig{TableName: "novatune", Region: "us-east-1"}
}

func defaultS3() S3Config {
	return S3Config{
		Bucket:        "novatune-audio",
		Region:        "us-east-1",
		PresignPutTTL: 15 * time.Minute,
		PresignGetTTL: 6 * time.Hour,
	}
}

func defaultRedis() RedisConfig {
	return RedisConfig{
		Address:     "127.0.0.1:6379",
		DialTimeout: 5 * time.Second,
		DefaultTTL:  6 * time.Hour,
	}
}

func defaultUpload() UploadConfig {
	return UploadConfig{
		MaxFileSizeBytes:    500 << 20, // 500MB
		AllowedMimeTypes:    []string{"audio/flac", "audio/mpeg", "audio/wav", "audio/x-wav", "audio/ogg", "audio/mp4", "audio/aac"},
		SessionTTL:          30 * time.Minute,
		SweepInterval:       5 * time.Minute,
		PerUserStorageQuota: 50 << 30, // 50GB
		MaxTracksPerUser:    10000,
	}
}

func defaultProcessor() ProcessorConfig {
	return ProcessorConfig{
		FfprobePath:        "ffprobe",
		FfmpegPath:         "ffmpeg",
		MaxDurationSeconds: 3 * 60 * 60,
		MinDurationSeconds: 0.5,
		AllowedCodecs:      []string{"flac", "mp3", "pcm_s16le", "pcm_s24le", "vorbis", "aac", "alac"},
		WaveformPoints:     1000,
		ProcessTimeout:     10 * time.Minute,
		Concurrency:        2,
	}
}

func defaultTrack() TrackConfig {
	return TrackConfig{
		DefaultPageSize:     25,
		MaxPageSize:         100,
		CursorMaxAge:        24 * time.Hour,
		StreamPresignTTL:    90 * time.Second,
		StreamRefreshBuffer: 30 * time.Second,
		SearchResultLimit:   50,
	}
}

func defaultPlaylist() PlaylistConfig {
	return PlaylistConfig{
		MaxAddBatch:          100,
		MaxTracksPerPlaylist: 5000,
		MaxPlaylistsPerUser:  500,
	}
}

func defaultLifecycle() LifecycleConfig {
	return LifecycleConfig{
		SweepInterval:            10 * time.Minute,
		DeletionGracePeriod:      30 * 24 * time.Hour,
		DegradedBacklogThreshold: 1000,
		BatchSize:                100,
		MaxConcurrency:           8,
	}
}

func defaultTelemetry() TelemetryConfig {
	return TelemetryConfig{
		ConsumerConcurrency: 4,
		FlushInterval:       30 * time.Second,
	}
}

func defaultAuth() AuthConfig {
	return AuthConfig{
		Issuer:                 "novatune",
		AccessTokenTTL:         15 * time.Minute,
		RefreshTokenTTL:        60 * time.Minute,
		MaxActiveRefreshTokens: 10,

		// Matches OWASP's current Argon2id recommendation for an
		// interactive login path.
		Argon2MemoryKB:    65536,
		Argon2Iterations:  3,
		Argon2Parallelism: 4,
		Argon2SaltLength:  16,
		Argon2KeyLength:   32,

		LoginRateLimitPerIP:      10,
		LoginRateLimitPerAccount: 5,
		LoginRateLimitWindow:     time.Minute,
	}
}
