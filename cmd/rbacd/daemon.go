// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tomtom215/mqtt-file-rbac/internal/api"
	"github.com/tomtom215/mqtt-file-rbac/internal/cache"
	"github.com/tomtom215/mqtt-file-rbac/internal/config"
	"github.com/tomtom215/mqtt-file-rbac/internal/definition"
	"github.com/tomtom215/mqtt-file-rbac/internal/engine"
	"github.com/tomtom215/mqtt-file-rbac/internal/hooks"
	"github.com/tomtom215/mqtt-file-rbac/internal/logging"
	"github.com/tomtom215/mqtt-file-rbac/internal/reload"
	"github.com/tomtom215/mqtt-file-rbac/internal/supervisor"
	"github.com/tomtom215/mqtt-file-rbac/internal/supervisor/services"
)

// daemon holds the wired components of rbacd.
type daemon struct {
	engine  *engine.Engine
	watcher *reload.Watcher
	auth    *hooks.Authenticator
	tree    *supervisor.SupervisorTree
	http    *services.HTTPServerService
}

// newDaemon builds every component from cfg and adds the long-running ones
// to a supervisor tree. Nothing is started.
func newDaemon(cfg *config.Config) (*daemon, error) {
	engCfg, err := engineConfig(cfg)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(engCfg)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	watchCfg := reload.Config{
		Path:     cfg.Definition.Path,
		Interval: cfg.Definition.ReloadInterval,
	}
	if cfg.Definition.ArchiveEnabled {
		watchCfg.ArchiveDir = cfg.Definition.ArchiveDir
	}

	d := &daemon{
		engine:  eng,
		watcher: reload.NewWatcher(eng, watchCfg),
		auth: hooks.NewAuthenticator(eng, hooks.Config{
			ListenerNames:              cfg.Hooks.ListenerNames,
			NextExtensionInsteadOfFail: cfg.Hooks.NextExtensionInsteadOfFail,
		}),
	}

	d.tree, err = supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}

	d.tree.AddEngineService(eng.MaintenanceService())
	d.tree.AddReloadService(d.watcher)

	if cfg.Server.Enabled {
		server := &http.Server{
			Handler: api.NewRouter(d.auth, eng, api.Config{
				RateLimitRequests: cfg.Server.RateLimitRequests,
				RateLimitWindow:   cfg.Server.RateLimitWindow,
				RateLimitDisabled: cfg.Server.RateLimitDisabled,
			}),
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		}
		d.http = services.NewHTTPServerService(server, cfg.Server.Address, cfg.Server.ShutdownTimeout)
		d.tree.AddAPIService(d.http)
	}

	return d, nil
}

func engineConfig(cfg *config.Config) (engine.Config, error) {
	pt, err := definition.ParsePasswordType(cfg.Definition.PasswordType)
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{
		PasswordType: pt,
		AuthnCache: cache.Config{
			MaxEntries: cfg.Cache.AuthnMaxEntries,
			TTL:        cfg.Cache.AuthnTTL,
			Shards:     cfg.Cache.Shards,
		},
		AuthzCache: cache.Config{
			MaxEntries: cfg.Cache.AuthzMaxEntries,
			TTL:        cfg.Cache.AuthzTTL,
			Shards:     cfg.Cache.Shards,
		},
		MaxConcurrentAuthentications: cfg.Engine.MaxConcurrentAuthentications,
		MaintenanceInterval:          cfg.Cache.MaintenanceInterval,
	}, nil
}

// initialLoad reads the definition once before serving. A missing or
// invalid file is not fatal: the engine stays not-ready and connects are
// refused until the watcher installs a valid definition.
func (d *daemon) initialLoad() {
	res, err := d.watcher.Check()
	switch res {
	case reload.ResultInstalled:
		return
	case reload.ResultMissing:
		logging.Warn().Msg("Access definition not found; refusing connections until it appears")
	default:
		logging.Error().Err(err).Str("result", res.String()).
			Msg("Access definition could not be loaded; refusing connections until it is fixed")
	}
}

// run serves until ctx is canceled and reports services that failed to
// stop in time.
func (d *daemon) run(ctx context.Context) error {
	d.initialLoad()

	logging.Info().Msg("Starting supervisor tree")
	err := <-d.tree.ServeBackground(ctx)

	if unstopped, reportErr := d.tree.UnstoppedServiceReport(); reportErr == nil {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	return nil
}
