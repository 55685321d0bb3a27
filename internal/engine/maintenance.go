// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package engine

import (
	"context"
	"time"
)

// MaintenanceService periodically sweeps expired entries out of the
// decision caches. It implements suture.Service.
type MaintenanceService struct {
	engine   *Engine
	interval time.Duration
}

// MaintenanceService returns the cache sweeper for e.
func (e *Engine) MaintenanceService() *MaintenanceService {
	return &MaintenanceService{engine: e, interval: e.cfg.MaintenanceInterval}
}

// Serve runs until ctx is cancelled.
func (m *MaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep removes expired cache entries once.
func (m *MaintenanceService) Sweep() {
	authn := m.engine.authn.CleanupExpired()
	authz := m.engine.authz.CleanupExpired()
	if authn+authz > 0 {
		m.engine.logger.Debug().
			Int("authn", authn).
			Int("authz", authz).
			Msg("Expired cache entries removed")
	}
}

// String returns the service name for supervisor logs.
func (m *MaintenanceService) String() string {
	return "cache-maintenance"
}
