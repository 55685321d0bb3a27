// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/mqtt-file-rbac/internal/logging"
)

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the decision API as a supervised service.
//
// Each start binds a fresh listener, so a restart after a crash does not
// depend on the previous socket. The bound address is available from
// Addr once the listener is open, which lets ":0" be used in tests.
//
//	server := &http.Server{Handler: router}
//	tree.AddAPIService(services.NewHTTPServerService(server, ":8089", 10*time.Second))
type HTTPServerService struct {
	server          HTTPServer
	address         string
	shutdownTimeout time.Duration
	listen          func(network, address string) (net.Listener, error)

	mu    sync.Mutex
	bound net.Addr
	ready chan struct{}
}

// NewHTTPServerService creates a service that serves server on address.
// A non-positive shutdownTimeout falls back to 10s.
func NewHTTPServerService(server HTTPServer, address string, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		address:         address,
		shutdownTimeout: shutdownTimeout,
		listen:          net.Listen,
		ready:           make(chan struct{}),
	}
}

// Serve implements suture.Service. It returns ctx.Err() after a graceful
// shutdown and a wrapped error when binding or serving fails.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	ln, err := h.listen("tcp", h.address)
	if err != nil {
		return fmt.Errorf("http server listen on %s: %w", h.address, err)
	}
	h.setBound(ln.Addr())

	logger := logging.WithComponent("http")
	logger.Info().Str("address", ln.Addr().String()).Msg("HTTP API listening")

	errCh := make(chan error, 1)
	go func() {
		err := h.server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// ctx is already canceled; shutdown gets its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		logger.Info().Msg("HTTP API stopped")
		return ctx.Err()
	}
}

func (h *HTTPServerService) setBound(addr net.Addr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.bound == nil {
		close(h.ready)
	}
	h.bound = addr
}

// Addr returns the address of the most recent listener, or nil before
// the first successful bind.
func (h *HTTPServerService) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bound
}

// Ready is closed once the first listener is bound.
func (h *HTTPServerService) Ready() <-chan struct{} {
	return h.ready
}

// String implements fmt.Stringer for suture's logs.
func (h *HTTPServerService) String() string {
	return "http-server"
}
