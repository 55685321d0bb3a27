// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

// Package logging provides centralized zerolog-based structured logging.
//
// # Overview
//
// The package provides:
//   - A global zerolog logger configured once from the logging config section
//   - JSON output for production and console output for development
//   - Correlation and request IDs carried in context.Context
//   - An slog.Handler adapter so that sutureslog writes through zerolog
//   - A SecurityLogger for connect, publish and subscribe outcomes that
//     masks usernames and never logs credentials
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Uint64("version", v).Msg("Access definition installed")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Reload rejected")
//
// # Component Loggers
//
// Long-lived components keep a sub-logger:
//
//	log := logging.WithComponent("reload")
//	log.Info().Str("path", path).Msg("Watching definition file")
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event
// is never written.
package logging
