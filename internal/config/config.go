// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package config

import (
	"time"

	"github.com/tomtom215/mqtt-file-rbac/internal/credentials"
)

// Config holds all daemon configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: Override any mapped setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	eng, err := engine.New(engine.Config{PasswordType: cfg.Definition.PasswordType, ...})
type Config struct {
	Definition DefinitionConfig `koanf:"definition"`
	Cache      CacheConfig      `koanf:"cache"`
	Hash       HashConfig       `koanf:"hash"`
	Engine     EngineConfig     `koanf:"engine"`
	Hooks      HooksConfig      `koanf:"hooks"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// DefinitionConfig locates the access definition and controls reloading.
//
// Environment Variables:
//   - RBAC_DEFINITION_PATH: definition file (default: conf/credentials.xml)
//   - RBAC_RELOAD_INTERVAL: polling period (default: 60s)
//   - RBAC_PASSWORD_TYPE: HASHED or PLAIN (default: HASHED)
//   - RBAC_ARCHIVE_ENABLED: keep replaced definitions (default: true)
//   - RBAC_ARCHIVE_DIR: archive directory (default: credentials-archive)
type DefinitionConfig struct {
	Path string `koanf:"path" validate:"required"`

	// ReloadInterval is how often the file is re-checked when no file
	// events arrive.
	ReloadInterval time.Duration `koanf:"reload_interval" validate:"gt=0"`

	// PasswordType selects how <password> values are read.
	PasswordType string `koanf:"password_type" validate:"oneof=HASHED PLAIN hashed plain"`

	ArchiveEnabled bool   `koanf:"archive_enabled"`
	ArchiveDir     string `koanf:"archive_dir" validate:"required_if=ArchiveEnabled true"`
}

// CacheConfig sizes the decision caches. A zero entry count disables a
// cache; a zero TTL keeps entries until evicted or purged.
type CacheConfig struct {
	AuthnMaxEntries int           `koanf:"authn_max_entries" validate:"gte=0"`
	AuthnTTL        time.Duration `koanf:"authn_ttl" validate:"gte=0"`
	AuthzMaxEntries int           `koanf:"authz_max_entries" validate:"gte=0"`
	AuthzTTL        time.Duration `koanf:"authz_ttl" validate:"gte=0"`

	// Shards is rounded up to a power of two.
	Shards int `koanf:"shards" validate:"gte=1,lte=1024"`

	// MaintenanceInterval is how often expired entries are swept.
	MaintenanceInterval time.Duration `koanf:"maintenance_interval" validate:"gt=0"`
}

// HashConfig holds the work factors for newly generated credentials.
type HashConfig struct {
	Algorithm       string `koanf:"algorithm" validate:"oneof=pbkdf2-sha512 bcrypt argon2id"`
	Iterations      int    `koanf:"iterations" validate:"gte=1"`
	BcryptCost      int    `koanf:"bcrypt_cost"`
	Argon2MemoryKiB uint32 `koanf:"argon2_memory_kib"`
	Argon2Time      int    `koanf:"argon2_time"`
	Argon2Threads   uint8  `koanf:"argon2_threads"`
	SaltLength      int    `koanf:"salt_length" validate:"gte=8"`
}

// Params converts the section to credential parameters for its algorithm.
func (h HashConfig) Params() (credentials.Params, error) {
	alg, err := credentials.ParseAlgorithm(h.Algorithm)
	if err != nil {
		return credentials.Params{}, err
	}
	p := credentials.DefaultParams(alg)
	switch alg {
	case credentials.AlgorithmPBKDF2SHA512:
		p.Iterations = h.Iterations
	case credentials.AlgorithmBcrypt:
		p.Cost = h.BcryptCost
	case credentials.AlgorithmArgon2id:
		p.Iterations = h.Argon2Time
		p.MemoryKiB = h.Argon2MemoryKiB
		p.Threads = h.Argon2Threads
	}
	return p, p.Validate()
}

// EngineConfig tunes the decision engine.
type EngineConfig struct {
	// MaxConcurrentAuthentications bounds concurrent credential hashing.
	// Zero means unbounded.
	MaxConcurrentAuthentications int64 `koanf:"max_concurrent_authentications" validate:"gte=0"`
}

// HooksConfig controls the broker connect hook.
//
// Environment Variables:
//   - RBAC_LISTENER_NAMES: comma-separated listener names (default: all)
//   - RBAC_NEXT_EXTENSION_INSTEAD_OF_FAIL: defer instead of rejecting (default: false)
type HooksConfig struct {
	ListenerNames              []string `koanf:"listener_names"`
	NextExtensionInsteadOfFail bool     `koanf:"next_extension_instead_of_fail"`
}

// ServerConfig holds the HTTP decision API settings.
//
// Environment Variables:
//   - HTTP_ENABLED: serve the API (default: true)
//   - HTTP_ADDRESS: listen address (default: 127.0.0.1:8089)
//   - RATE_LIMIT_REQUESTS / RATE_LIMIT_WINDOW: per-IP limit (default: 1000 per 1m)
//   - DISABLE_RATE_LIMIT: turn the limiter off (default: false)
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Address         string        `koanf:"address"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// SupervisorConfig holds the suture tree settings.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Load reads configuration from defaults, the config file and the
// environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
