// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

// Package services adapts components that do not already implement
// suture.Service. The reload watcher and the engine's maintenance service
// satisfy the interface directly; the HTTP API needs the listen and
// graceful shutdown handling in HTTPServerService.
package services
