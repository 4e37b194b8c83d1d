package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shopbot/internal/config"
	"shopbot/internal/messenger"
	"shopbot/internal/metrics"
	"shopbot/internal/pipeline"
	"shopbot/internal/provider"
	"shopbot/internal/store"
	"shopbot/internal/vault"
	"shopbot/internal/webhook"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.General.LogLevel)}))

	// Missing secrets are configuration errors: fatal at startup, never retried.
	appSecret := config.Secret(cfg.Platform.AppSecret)
	if appSecret == "" {
		return errors.New("platform.appSecret is not configured (set SHOPBOT_APP_SECRET)")
	}
	cipher, err := vault.New(config.Secret(cfg.Vault.KeyHex))
	if err != nil {
		return fmt.Errorf("vault.keyHex: %w", err)
	}

	db, err := store.New(cfg.Storage.DBPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	collector := metrics.NewCollector()

	pipe := pipeline.New(pipeline.Config{
		Channels: db,
		Catalog:  db,
		Cipher:   cipher,
		Generator: provider.New(provider.Config{
			APIKey:  config.Secret(cfg.Generation.APIKey),
			APIBase: cfg.Generation.APIBase,
			Model:   cfg.Generation.Model,
			Timeout: time.Duration(cfg.Generation.TimeoutMs) * time.Millisecond,
			Logger:  logger,
		}),
		Deliverer: messenger.New(messenger.Config{
			APIBase: cfg.Platform.APIBase,
			Logger:  logger,
		}),
		Log:     db,
		Logger:  logger,
		Metrics: collector,
	})

	handler := webhook.NewHandler(webhook.HandlerConfig{
		VerifyToken: config.Secret(cfg.Platform.VerifyToken),
		AppSecret:   appSecret,
		Processor:   pipe,
		Logger:      logger,
		Metrics:     collector,
	})

	router := webhook.NewRouter(handler, collector, cfg.Server.WebhookPath)
	srv := webhook.NewServer(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("webhook server starting", "addr", srv.Addr, "path", cfg.Server.WebhookPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
