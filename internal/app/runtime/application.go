// Package runtime wires the session layer components and manages the HTTP
// server lifecycle.
package runtime

import (
	"context"
	"fmt"
	"net/http"

	"github.com/R3E-Network/session_layer/internal/config"
	"github.com/R3E-Network/session_layer/internal/host"
	"github.com/R3E-Network/session_layer/internal/httpapi"
	"github.com/R3E-Network/session_layer/internal/identity"
	"github.com/R3E-Network/session_layer/internal/session"
	"github.com/R3E-Network/session_layer/internal/wallet"
	"github.com/R3E-Network/session_layer/pkg/logger"
)

// Application wires core dependencies and manages the service lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *httpapi.Server
	manager    *session.Manager
	listener   *wallet.HubListener
}

// NewApplication constructs an application instance with default wiring.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig constructs an application from an already-loaded
// configuration.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	bridgeClient := host.NewClient(host.ClientConfig{
		BaseURL:      cfg.Host.BridgeURL,
		SessionToken: cfg.Host.SessionToken,
		CallTimeout:  cfg.Host.CallTimeout,
	}, log)

	signal := wallet.NewSignal()
	registry := wallet.NewRegistry()

	var provider wallet.Provider
	if cfg.Host.BridgeURL != "" {
		provider = bridgeClient
		injected := wallet.NewInjectedConnector(cfg.Connector.InjectedID, bridgeClient, signal)
		if err := registry.Register(injected); err != nil {
			return nil, fmt.Errorf("register injected connector: %w", err)
		}
	}

	bridge := wallet.NewBridge(provider, registry, signal, cfg.Connector.InjectedID, log)
	resolver := identity.NewResolver(bridgeClient, cfg.Host.ProfilePath, log)

	manager := session.NewManager(session.Config{
		Runtime:           bridgeClient,
		Resolver:          resolver,
		Bridge:            bridge,
		Readiness:         bridgeClient,
		Signal:            signal,
		Logger:            log,
		ConnectRatePerMin: cfg.Wallet.ConnectRatePerMin,
	})

	var listener *wallet.HubListener
	if cfg.Connector.HubURL != "" {
		listener = wallet.NewHubListener(cfg.Connector.HubURL, cfg.Connector.APIKey, signal, log)
	}

	httpSrv := httpapi.NewServer(cfg.Server, httpapi.NewHandler(manager, log))

	return &Application{
		cfg:        cfg,
		log:        log,
		httpServer: httpSrv,
		manager:    manager,
		listener:   listener,
	}, nil
}

// Run starts session resolution and the HTTP server, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	a.manager.Start(ctx)

	if a.listener != nil {
		if err := a.listener.Start(ctx); err != nil {
			// The ambient event stream is an enhancement, not a requirement.
			a.log.WithError(err).Warn("connector hub unavailable, continuing without ambient events")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr())
		if err := a.httpServer.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the service.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.manager.Close()

	if a.listener != nil {
		if err := a.listener.Stop(); err != nil {
			a.log.WithError(err).Warn("error closing connector hub listener")
		}
	}

	return a.httpServer.Shutdown(shutdownCtx)
}
