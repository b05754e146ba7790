// Package app ties the HTTP server, the upstream monitor and alerting
// together and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"pixelplay/alert"
	"pixelplay/config"
	"pixelplay/server"
	"pixelplay/upstream"
)

// App represents the running service
type App struct {
	config    *config.Config
	notifier  alert.Notifier
	server    *server.Server
	monitor   *UpstreamMonitor
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	errorChan chan error
}

// New creates a new App instance
func New(cfg *config.Config) (*App, error) {
	client, err := upstream.NewClient(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream client: %w", err)
	}

	notifier, err := alert.New(cfg.Alerts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		config:    cfg,
		notifier:  notifier,
		logger:    slog.With("component", "app"),
		ctx:       ctx,
		cancel:    cancel,
		errorChan: make(chan error, 10),
	}

	a.server = server.New(cfg, client, notifier)
	a.monitor = NewUpstreamMonitor(client, notifier, cfg.Monitor.Interval, &a.wg)

	return a, nil
}

// Start begins serving and monitoring
func (a *App) Start() error {
	a.logger.Info("Starting pixelplay...")

	if err := a.server.Start(a.errorChan); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	a.monitor.Start(a.ctx)

	a.logger.Info("pixelplay started successfully")
	return nil
}

// Stop gracefully shuts down the service
func (a *App) Stop(ctx context.Context) error {
	a.logger.Info("Stopping pixelplay...")

	// Stop background work first so it doesn't alert during shutdown
	a.cancel()

	err := a.server.Stop(ctx)
	if err != nil {
		a.logger.Error("HTTP server shutdown incomplete", slog.Any("error", err))
	}

	a.wg.Wait()

	if d, ok := a.notifier.(*alert.Discord); ok {
		d.Close(ctx)
	}

	a.logger.Info("pixelplay stopped")
	return err
}

// Error returns the error channel for monitoring errors
func (a *App) Error() <-chan error {
	return a.errorChan
}
