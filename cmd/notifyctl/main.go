// Command notifyctl is the operational CLI for the notification dispatcher.
//
// Usage:
//
//	notifyctl keygen
//	notifyctl dispatch
//	notifyctl dispatch --test
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/qurancoach/notifier/internal/config"
	"github.com/qurancoach/notifier/internal/db"
	"github.com/qurancoach/notifier/internal/dispatch"
	"github.com/qurancoach/notifier/internal/prayer"
	"github.com/qurancoach/notifier/internal/registry"
	"github.com/qurancoach/notifier/internal/webpush"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "notifyctl",
		Short: "Quran Coach notification dispatcher CLI",
	}

	root.AddCommand(keygenCmd())
	root.AddCommand(dispatchCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// keygen command
// --------------------------------------------------------------------------

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a fresh VAPID key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := webpush.GenerateKeyPair()
			if err != nil {
				return err
			}
			fmt.Printf("VAPID_PUBLIC_KEY=%s\n", pub)
			fmt.Printf("VAPID_PRIVATE_KEY=%s\n", priv)
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// dispatch command
// --------------------------------------------------------------------------

func dispatchCmd() *cobra.Command {
	var testMode bool
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Run one dispatch cycle without the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			signer, err := webpush.NewVAPID(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
			if err != nil {
				return fmt.Errorf("invalid VAPID configuration: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			pool, err := db.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			store := registry.NewStore(pool.Pool)
			prayerClient := prayer.NewClient(cfg.PrayerAPIBaseURL, cfg.PrayerAPITimeout, cfg.PrayerAPIPerMin, logger)
			sender := webpush.NewSender(cfg.PushTimeout, cfg.PushTTLSeconds)
			runner := dispatch.NewRunner(store, prayerClient, signer, sender, dispatch.Config{
				WindowMinutes:   cfg.WindowMinutes,
				CooldownMinutes: cfg.CooldownMinutes,
				Workers:         cfg.DispatchWorkers,
				DefaultTimezone: cfg.DefaultTimezone,
			}, logger)

			result, err := runner.Run(ctx, testMode)
			if err != nil {
				return err
			}
			logger.Info("Dispatch finished",
				"test", testMode,
				"total", result.Total,
				"sent", result.Sent,
				"deleted", result.Deleted,
				"failed", result.Failed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&testMode, "test", false, "bypass trigger windows and send a test notification to every subscriber")
	return cmd
}
