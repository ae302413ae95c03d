// Package app implements the core application lifecycle: it runs the
// peer registry loop, the Telegram update listener, the HTTP/WebSocket
// gateway and the task scheduler, and shuts them down together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/peerwatch/internal/gateway"
	"github.com/edgard/peerwatch/internal/peer"
)

// App represents the main application and manages its components' lifecycle.
type App struct {
	logger    *slog.Logger
	registry  *peer.Registry
	hub       *gateway.Hub
	watcher   *gateway.Watcher
	server    *gateway.Server
	tgBot     *tgbot.Bot
	scheduler *Scheduler
}

// NewApp creates a new application instance from already constructed
// components. Wiring between them (handlers, watchers, stores) is the
// caller's job; App only runs and stops them.
func NewApp(
	logger *slog.Logger,
	registry *peer.Registry,
	hub *gateway.Hub,
	watcher *gateway.Watcher,
	server *gateway.Server,
	tgBot *tgbot.Bot,
	scheduler *Scheduler,
) *App {
	return &App{
		logger:    logger.With("component", "orchestrator"),
		registry:  registry,
		hub:       hub,
		watcher:   watcher,
		server:    server,
		tgBot:     tgBot,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until the context is cancelled
// or one of them fails. It returns an error if any component fails
// during startup or execution.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting peer registry loop...")
		err := a.registry.Run(gCtx)
		a.logger.Info("Peer registry loop stopped.")
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("peer registry stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.logger.Info("Starting gateway hub...")
		err := a.hub.Run(gCtx)
		a.logger.Info("Gateway hub stopped.")
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("gateway hub stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.watcher.Start()
		<-gCtx.Done()
		a.watcher.Stop()
		return nil
	})

	g.Go(func() error {
		a.logger.Info("Starting gateway server...")
		if err := a.server.Run(gCtx); err != nil {
			a.logger.Error("Gateway server failed", "error", err)
			return fmt.Errorf("gateway server: %w", err)
		}
		a.logger.Info("Gateway server stopped.")
		return nil
	})

	g.Go(func() error {
		a.logger.Info("Starting Telegram bot listener...")

		a.tgBot.Start(gCtx)
		a.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			a.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")

			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		a.logger.Info("Starting scheduler...")
		if err := a.scheduler.Start(); err != nil {
			a.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	a.logger.Info("Orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Orchestrator stopped due to error", "error", err)
		return err
	}

	a.logger.Info("Orchestrator stopped gracefully.")
	return nil
}
