// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

// Command rbacd serves file-based access control decisions for an MQTT
// broker.
//
// # Startup
//
//  1. Configuration: defaults, optional YAML file, environment (Koanf v2)
//  2. Engine: decision caches and the credential semaphore
//  3. Initial load of the access definition
//  4. Supervisor tree: cache maintenance, definition watcher, HTTP API
//
// A missing or invalid definition at startup is logged and the daemon
// keeps running; connects are refused with "server unavailable" until a
// valid definition is installed.
//
// # Signals
//
// SIGINT and SIGTERM stop the supervisor tree. The HTTP API drains
// in-flight requests for HTTP_SHUTDOWN_TIMEOUT.
//
// # Example
//
//	export RBAC_DEFINITION_PATH=/etc/mosquitto/credentials.xml
//	export HTTP_ADDRESS=127.0.0.1:8089
//	rbacd
//
//	rbacd -config /etc/mqtt-file-rbac/config.yaml
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/mqtt-file-rbac/internal/config"
	"github.com/tomtom215/mqtt-file-rbac/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: CONFIG_PATH or the standard locations)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("definition", cfg.Definition.Path).
		Str("password_type", cfg.Definition.PasswordType).
		Dur("reload_interval", cfg.Definition.ReloadInterval).
		Bool("http_enabled", cfg.Server.Enabled).
		Str("http_address", cfg.Server.Address).
		Msg("Configuration loaded")

	d, err := newDaemon(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	if err := d.run(ctx); err != nil {
		logging.Error().Err(err).Msg("Stopped with error")
		cancel()
		os.Exit(1)
	}
	logging.Info().Msg("Stopped gracefully")
}
