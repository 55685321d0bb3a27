// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/tomtom215/mqtt-file-rbac/internal/definition"
	"github.com/tomtom215/mqtt-file-rbac/internal/logging"
	"github.com/tomtom215/mqtt-file-rbac/internal/validation"
)

// Validate checks that the configuration is complete and consistent.
// Field-level rules come from the validate struct tags; the rest are
// cross-field checks.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateDefinition(); err != nil {
		return err
	}

	if err := c.validateHash(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateDefinition checks the password type is one the parser knows.
func (c *Config) validateDefinition() error {
	if _, err := definition.ParsePasswordType(c.Definition.PasswordType); err != nil {
		return fmt.Errorf("RBAC_PASSWORD_TYPE: %w", err)
	}
	return nil
}

// validateHash checks the work factors of the selected algorithm.
func (c *Config) validateHash() error {
	if _, err := c.Hash.Params(); err != nil {
		return fmt.Errorf("hash: %w", err)
	}
	return nil
}

// validateServer validates the HTTP API settings (only if enabled).
// Port 0 is accepted and picks a free port.
func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.Address == "" {
		return fmt.Errorf("HTTP_ADDRESS is required when the HTTP API is enabled")
	}
	_, port, err := net.SplitHostPort(c.Server.Address)
	if err != nil {
		return fmt.Errorf("address must be a host:port address: %w", err)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("address must be a host:port address: port %q is not in 0-65535", port)
	}
	return nil
}

// validateLogging validates the log level
func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, off (got %q)", c.Logging.Level)
	}
	return nil
}
