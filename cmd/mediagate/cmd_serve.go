package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/mediagate/internal/config"
	"github.com/user/mediagate/internal/delivery"
	"github.com/user/mediagate/internal/gate"
	"github.com/user/mediagate/internal/gateway"
	"github.com/user/mediagate/internal/media"
	"github.com/user/mediagate/internal/metrics"
	"github.com/user/mediagate/internal/scheduler"
	"github.com/user/mediagate/internal/state"
	"github.com/user/mediagate/internal/telegram"
	"github.com/user/mediagate/internal/webhook"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bot",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, pidFileName)
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

// webhookMode reports whether updates arrive over the HTTP server instead
// of long polling.
func webhookMode(cfg *config.Config) bool {
	return cfg.HTTP.Enabled && cfg.HTTP.WebhookSecret != ""
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	autoDelete, _ := cfg.AutoDeleteAfter()
	maxAge, _ := cfg.TransientMaxAge()

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	// Write PID file
	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	m := metrics.New()

	adapter, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.PollTimeout)
	if err != nil {
		return fmt.Errorf("create telegram adapter: %w", err)
	}

	// Scheduler for delayed deletions
	sched, err := scheduler.New(m)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			slog.Warn("scheduler shutdown failed", "error", err)
		}
	}()

	// Sweeper for leftovers of crashed transfers
	sweeper := scheduler.NewSweeper(cfg.TransientDir(), maxAge, m)
	if err := sweeper.Start(cfg.SweepSchedule()); err != nil {
		return err
	}
	defer sweeper.Stop()

	// Stores
	intents := state.NewIntentStore()
	sessions := state.NewMediaSessions(0)

	router := gateway.NewRouter(gateway.Options{
		Gate:         gate.New(adapter, cfg.Telegram.Channel, intents, m),
		Intents:      intents,
		Sessions:     sessions,
		Resolver:     media.NewResolver(cfg.Downloader.Endpoint, cfg.Downloader.APIKey),
		Pipeline:     delivery.New(sessions, adapter, sched, cfg.TransientDir(), autoDelete, int64(cfg.MaxTransfers), m),
		Messenger:    adapter,
		Scheduler:    sched,
		Metrics:      m,
		ChannelURL:   cfg.Telegram.ChannelURL,
		DeveloperURL: cfg.Telegram.DeveloperURL,
		AutoDelete:   autoDelete,
	})

	// Gateway
	gw := gateway.New(router, int64(cfg.MaxConcurrent))
	adapter.SetInbound(gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw.Start(ctx)
	defer gw.Stop()

	startedAt := time.Now()
	slog.Info("mediagate started",
		"bot", adapter.Username(),
		"channel", cfg.Telegram.Channel,
		"data_dir", cfg.DataDir,
		"transient_dir", cfg.TransientDir(),
		"log_level", cfg.LogLevel,
		"max_concurrent", cfg.MaxConcurrent,
		"max_transfers", cfg.MaxTransfers,
		"auto_delete", autoDelete,
		"webhook", webhookMode(cfg),
		"pid_file", pidPath,
	)

	if cfg.HTTP.Enabled {
		opts := webhook.Options{
			Metrics: m.Handler(),
			Stats: func() webhook.Stats {
				return webhook.Stats{
					PendingIntents: intents.Len(),
					MediaSessions:  sessions.Len(),
					UptimeSeconds:  time.Since(startedAt).Seconds(),
				}
			},
		}
		if webhookMode(cfg) {
			opts.Updates = adapter
			opts.Secret = cfg.HTTP.WebhookSecret
		}
		srv := webhook.NewServer(opts)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.HTTP.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server error", "error", err)
			}
		}()
	}

	if !webhookMode(cfg) {
		go adapter.Start(ctx)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			// Clean up PID file before re-exec
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				// Re-write PID file since we failed to re-exec
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		if !gw.Queue.WaitIdle(30 * time.Second) {
			slog.Warn("in-flight interactions still running at shutdown")
		}
		return nil
	}
}
