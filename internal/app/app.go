package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/hllvc/tokenrelay/internal/broker"
	"github.com/hllvc/tokenrelay/internal/credstore"
	"github.com/hllvc/tokenrelay/internal/relay"
	"github.com/hllvc/tokenrelay/internal/spotify"
)

// App orchestrates the lifecycle of the relay server and related services.
type App struct {
	cfg   *Config
	store credstore.Store
	relay *relay.Relay
}

// New creates a new App instance.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := cfg.Store.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create credential store: %w", err)
	}

	endpoint := oauth2.Endpoint{
		AuthURL:   cfg.Spotify.AuthURL,
		TokenURL:  cfg.Spotify.TokenURL,
		AuthStyle: spotify.Endpoint.AuthStyle,
	}
	exchanger := spotify.NewExchanger(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURI, endpoint)

	coordinator := broker.New(exchanger, broker.NewGate(cfg.Device.AuthKey), store)

	relayServer, err := relay.New(coordinator)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay: %w", err)
	}

	return &App{
		cfg:   cfg,
		store: store,
		relay: relayServer,
	}, nil
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	address := a.cfg.Server.Host + ":" + strconv.FormatUint(uint64(a.cfg.Server.Port), 10)
	var shutdownFuncs []func(context.Context) error

	// Shutdown funcs run in reverse order: server drains before the store closes
	shutdownFuncs = append(shutdownFuncs, func(context.Context) error {
		return a.store.Close()
	})

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting relay server", "address", address, "store", a.cfg.Store.Backend)
	relayErrCh, err := a.relay.Start(gCtx, address)
	if err != nil {
		return fmt.Errorf("relay startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.relay.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-relayErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "relay runtime error", "error", err)
				return fmt.Errorf("relay: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "application ready", "address", address)

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
