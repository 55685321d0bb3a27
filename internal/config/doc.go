// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

/*
Package config provides configuration loading and validation for the
access control daemon and its tools.

# Configuration Sources

Configuration is layered with Koanf v2, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, or the first of DefaultConfigPaths
 3. Environment variables listed in envMappings

# Configuration Structure

  - DefinitionConfig: definition file location, reload interval, password type, archiving
  - CacheConfig: authentication and authorization cache sizes and TTLs
  - HashConfig: work factors for credentials created by rbac-passwd
  - EngineConfig: concurrency limit for credential verification
  - HooksConfig: listener filter and fail/next behaviour of the connect hook
  - ServerConfig: HTTP decision API address, timeouts and rate limit
  - LoggingConfig: zerolog level and format
  - SupervisorConfig: suture failure thresholds

# Environment Variables

Definition:
  - RBAC_DEFINITION_PATH: definition file (default: conf/credentials.xml)
  - RBAC_RELOAD_INTERVAL: polling period (default: 60s)
  - RBAC_PASSWORD_TYPE: HASHED or PLAIN (default: HASHED)
  - RBAC_ARCHIVE_ENABLED, RBAC_ARCHIVE_DIR: keep replaced definitions

Caches:
  - RBAC_AUTHN_CACHE_SIZE, RBAC_AUTHN_CACHE_TTL (default: 1000, 30s)
  - RBAC_AUTHZ_CACHE_SIZE, RBAC_AUTHZ_CACHE_TTL (default: 10000, 5m)
  - RBAC_CACHE_SHARDS, RBAC_CACHE_MAINTENANCE_INTERVAL

Hooks:
  - RBAC_LISTENER_NAMES: comma-separated listener names (default: all)
  - RBAC_NEXT_EXTENSION_INSTEAD_OF_FAIL: defer rejected connects to the next authenticator

HTTP API:
  - HTTP_ENABLED, HTTP_ADDRESS (default: true, 127.0.0.1:8089)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Validation runs go-playground/validator struct tags first, then the
cross-field checks in config_validate.go. A failed load never returns a
partially populated Config.
*/
package config
