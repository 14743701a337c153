// Command api is the Quran Coach notification dispatcher service.
//
// Usage:
//
//	notifier-api
//	API_PORT=8080 notifier-api
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/qurancoach/notifier/internal/api"
	"github.com/qurancoach/notifier/internal/config"
	"github.com/qurancoach/notifier/internal/db"
	"github.com/qurancoach/notifier/internal/dispatch"
	"github.com/qurancoach/notifier/internal/prayer"
	"github.com/qurancoach/notifier/internal/registry"
	"github.com/qurancoach/notifier/internal/webpush"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// VAPID key material is validated up front: a malformed key is a
	// configuration error, not something to discover per delivery.
	signer, err := webpush.NewVAPID(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
	if err != nil {
		logger.Error("Invalid VAPID configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Wire the dispatcher
	store := registry.NewStore(pool.Pool)
	prayerClient := prayer.NewClient(cfg.PrayerAPIBaseURL, cfg.PrayerAPITimeout, cfg.PrayerAPIPerMin, logger)
	sender := webpush.NewSender(cfg.PushTimeout, cfg.PushTTLSeconds)
	runner := dispatch.NewRunner(store, prayerClient, signer, sender, dispatch.Config{
		WindowMinutes:   cfg.WindowMinutes,
		CooldownMinutes: cfg.CooldownMinutes,
		Workers:         cfg.DispatchWorkers,
		DefaultTimezone: cfg.DefaultTimezone,
	}, logger)

	// Create router
	router := api.NewRouter(pool, store, runner, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Quran Coach Notifier",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
