// Package main contains the entrypoint for the PeerWatch application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/peerwatch/internal/app"
	"github.com/edgard/peerwatch/internal/app/tasks"
	"github.com/edgard/peerwatch/internal/appconfig"
	"github.com/edgard/peerwatch/internal/config"
	"github.com/edgard/peerwatch/internal/database"
	"github.com/edgard/peerwatch/internal/gateway"
	"github.com/edgard/peerwatch/internal/gemini"
	"github.com/edgard/peerwatch/internal/lang"
	"github.com/edgard/peerwatch/internal/logger"
	"github.com/edgard/peerwatch/internal/media"
	"github.com/edgard/peerwatch/internal/peer"
	"github.com/edgard/peerwatch/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop() // Ensure context cancellation is signaled before exit
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db,
// ai client, registry, gateway, listener, scheduler), handles graceful
// shutdown, and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db) // Ensure DB is closed on function exit
	store := database.NewStore(db, log)

	var gemClient gemini.Client
	if cfg.Gemini.APIKey != "" {
		gemClient, err = gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			log.Error("Failed to initialize Gemini client", "error", err)
			return 1
		}
	} else {
		log.Info("Gemini API key not configured, edit analysis is disabled")
	}

	phrases := lang.Default()
	for key, value := range cfg.Phrases {
		if !phrases.Override(key, value) {
			log.Warn("Ignoring unknown phrase key", "key", key)
		}
	}

	location := time.Local
	if cfg.Presence.Location != "" && cfg.Presence.Location != "Local" {
		location, err = time.LoadLocation(cfg.Presence.Location)
		if err != nil {
			log.Error("Failed to load presence location", "location", cfg.Presence.Location, "error", err)
			return 1
		}
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithAllowedUpdates(telegram.DefaultAllowedUpdates),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	// Retrieve bot info and store it in the config for runtime use
	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	// The downloader posts fetch results onto the registry loop, and the
	// registry takes the downloader at construction. The indirection
	// through reg breaks the tie; both sides exist before anything runs.
	var reg *peer.Registry
	downloader := media.NewHTTPDownloader(media.HTTPOptions{
		Logger:  log,
		Resolve: telegram.NewFileResolver(tg, cfg.Telegram.Token),
		Post:    func(fn func()) { reg.Post(fn) },
	})
	reg = peer.NewRegistry(peer.Options{
		Logger:       log,
		Phrases:      phrases,
		Location:     location,
		Config:       appconfig.NewStore(cfg.AppConfig),
		Downloader:   downloader,
		SelfID:       peer.PeerID(cfg.Telegram.BotInfo.ID),
		ForcePremium: cfg.Presence.ForcePremium,
	})

	hub := gateway.NewHub(log)
	watcher := gateway.NewWatcher(log, reg, hub)
	server := gateway.NewServer(cfg.Gateway.Addr, gateway.ServerDeps{
		Logger:   log,
		Registry: reg,
		Store:    store,
		Hub:      hub,
	})

	ingest := telegram.NewIngestHandler(telegram.IngestDeps{
		Logger:   log,
		Registry: reg,
		Store:    store,
		Notifier: watcher,
	})
	if err := telegram.RegisterIngestHandler(tg, log, ingest); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	tDeps := tasks.TaskDeps{
		Logger:       log,
		Store:        store,
		GeminiClient: gemClient,
		Config:       cfg,
	}
	sched := app.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	application := app.NewApp(log, reg, hub, watcher, server, tg, sched)

	log.Info("Starting PeerWatch...")
	runErr := application.Run(ctx) // Run blocks until context is cancelled or an error occurs
	log.Info("Run loop finished. Initiating shutdown...")

	// Check if the error is significant (not just context cancellation)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("PeerWatch stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("PeerWatch stopped gracefully.")
	// Allow logs to flush before exiting gracefully
	time.Sleep(time.Second)
	return 0
}
