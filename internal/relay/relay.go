// Package relay exposes the credential relay over HTTP: the human-facing
// consent endpoints (/login, /callback) and the device-facing polling
// endpoints (/token, /refresh).
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hllvc/tokenrelay/internal/broker"
)

// Relay is the HTTP server for the credential relay.
type Relay struct {
	handler http.Handler
	broker  *broker.Broker
	server  *http.Server
}

// Compile-time check that Relay implements http.Handler
var _ http.Handler = (*Relay)(nil)

// New creates a Relay serving the consent and polling routes.
func New(b *broker.Broker) (*Relay, error) {
	if b == nil {
		return nil, fmt.Errorf("missing broker")
	}

	r := &Relay{broker: b}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", r.handleLogin)
	mux.HandleFunc("GET /callback", r.handleCallback)
	mux.HandleFunc("GET /token", r.handleToken)
	mux.HandleFunc("GET /refresh", r.handleRefresh)
	mux.HandleFunc("GET /healthz", r.handleHealthz)

	r.handler = applyMiddlewares(mux,
		Logging(slog.Default()),
		Recovery,
	)

	return r, nil
}

// ServeHTTP implements http.Handler interface
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors (network failures during operation) are sent to the error channel.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (r *Relay) Start(ctx context.Context, address string) (<-chan error, error) {
	// Startup phase: Create listener synchronously to catch port-in-use errors immediately
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	r.server = &http.Server{
		Handler:      r,
		ReadTimeout:  30 * time.Second, // Read entire client request (DoS protection against slow clients)
		WriteTimeout: 60 * time.Second, // Bounds response writing including the upstream exchange round trip
		IdleTimeout:  90 * time.Second, // Keep-alive wait for next request from client
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := r.server.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Shutdown performs graceful shutdown of the HTTP server.
// Returns error if shutdown fails or times out.
func (r *Relay) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}

	if err := r.server.Shutdown(ctx); err != nil {
		// Graceful shutdown failed - force close
		_ = r.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
