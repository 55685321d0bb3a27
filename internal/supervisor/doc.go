// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

/*
Package supervisor runs the daemon's long-lived services under suture v4.

# Overview

	RootSupervisor ("mqtt-file-rbac")
	├── EngineSupervisor ("engine-layer")
	│   └── cache maintenance
	├── ReloadSupervisor ("reload-layer")
	│   └── definition watcher
	└── APISupervisor ("api-layer")
	    └── HTTPServerService (if HTTP_ENABLED)

Crashed services are restarted with backoff. Each layer counts failures
independently, so a watcher that cannot read its directory does not take
the decision API down with it.

Supervisor events (restarts, backoff, stop timeouts) are logged through
sutureslog into the zerolog-backed slog handler from the logging package.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddEngineService(eng.MaintenanceService())
	tree.AddReloadService(watcher)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	return tree.Serve(ctx)
*/
package supervisor
