// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

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

	"github.com/tomtom215/mqtt-file-rbac/internal/credentials"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"conf/config.yaml",
	"/etc/mqtt-file-rbac/config.yaml",
	"/etc/mqtt-file-rbac/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Definition: DefinitionConfig{
			Path:           "conf/credentials.xml",
			ReloadInterval: 60 * time.Second,
			PasswordType:   "HASHED",
			ArchiveEnabled: true,
			ArchiveDir:     "credentials-archive",
		},
		Cache: CacheConfig{
			AuthnMaxEntries:     1000,
			AuthnTTL:            30 * time.Second,
			AuthzMaxEntries:     10000,
			AuthzTTL:            5 * time.Minute,
			Shards:              16,
			MaintenanceInterval: time.Minute,
		},
		Hash: HashConfig{
			Algorithm:       "pbkdf2-sha512",
			Iterations:      credentials.DefaultPBKDF2Iterations,
			BcryptCost:      credentials.DefaultBcryptCost,
			Argon2MemoryKiB: credentials.DefaultArgon2MemoryKiB,
			Argon2Time:      credentials.DefaultArgon2Time,
			Argon2Threads:   credentials.DefaultArgon2Threads,
			SaltLength:      credentials.DefaultSaltLength,
		},
		Engine: EngineConfig{
			MaxConcurrentAuthentications: 0, // unbounded
		},
		Hooks: HooksConfig{
			ListenerNames:              []string{},
			NextExtensionInsteadOfFail: false,
		},
		Server: ServerConfig{
			Enabled:           true,
			Address:           "127.0.0.1:8089",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 1000,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5.0,
			FailureDecay:     30.0,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
func LoadWithKoanf() (*Config, error) {
	return loadFrom(findConfigFile())
}

// LoadFile loads configuration with path as the config file layer.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return loadFrom(path)
}

func loadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
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

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
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

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"hooks.listener_names",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Definition mappings
	"rbac_definition_path": "definition.path",
	"rbac_reload_interval": "definition.reload_interval",
	"rbac_password_type":   "definition.password_type",
	"rbac_archive_enabled": "definition.archive_enabled",
	"rbac_archive_dir":     "definition.archive_dir",

	// Cache mappings
	"rbac_authn_cache_size":           "cache.authn_max_entries",
	"rbac_authn_cache_ttl":            "cache.authn_ttl",
	"rbac_authz_cache_size":           "cache.authz_max_entries",
	"rbac_authz_cache_ttl":            "cache.authz_ttl",
	"rbac_cache_shards":               "cache.shards",
	"rbac_cache_maintenance_interval": "cache.maintenance_interval",

	// Hash mappings
	"rbac_hash_algorithm":         "hash.algorithm",
	"rbac_hash_iterations":        "hash.iterations",
	"rbac_hash_bcrypt_cost":       "hash.bcrypt_cost",
	"rbac_hash_argon2_memory_kib": "hash.argon2_memory_kib",
	"rbac_hash_argon2_time":       "hash.argon2_time",
	"rbac_hash_argon2_threads":    "hash.argon2_threads",
	"rbac_hash_salt_length":       "hash.salt_length",

	// Engine mappings
	"rbac_max_concurrent_authentications": "engine.max_concurrent_authentications",

	// Hook mappings
	"rbac_listener_names":                 "hooks.listener_names",
	"rbac_next_extension_instead_of_fail": "hooks.next_extension_instead_of_fail",

	// Server mappings
	"http_enabled":          "server.enabled",
	"http_address":          "server.address",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Supervisor mappings
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return an empty key and are skipped.
//
// Examples:
//   - RBAC_DEFINITION_PATH -> definition.path
//   - HTTP_ADDRESS -> server.address
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
