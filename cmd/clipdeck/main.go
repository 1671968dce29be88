package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipdeck/clipdeck/internal/api"
	"github.com/clipdeck/clipdeck/internal/config"
	"github.com/clipdeck/clipdeck/internal/events"
	"github.com/clipdeck/clipdeck/internal/logging"
	"github.com/clipdeck/clipdeck/internal/media"
	"github.com/clipdeck/clipdeck/internal/playback"
	"github.com/clipdeck/clipdeck/internal/session"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.MediaDir(), 0755); err != nil {
		return fmt.Errorf("failed to create media dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting clipdeck",
		"version", config.Version,
		"commit", config.GitCommit,
		"data_dir", logging.SanitizePath(cfg.DataDir()),
		"max_upload", logging.Bytes(cfg.MaxUploadBytes()),
	)

	store, err := media.NewStore(cfg.MediaDir(), cfg.MaxUploadBytes(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize media store: %w", err)
	}
	defer store.Close()

	broker := events.NewBroker(logger)

	sessions := session.NewManager(session.Config{
		Store:        store,
		Events:       broker,
		Logger:       logger,
		TickInterval: cfg.TickInterval(),
	})

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		Version:        config.Version,
		Sessions:       sessions,
		Playback:       playback.NewServer(store, logger),
		Events:         broker,
		Logger:         logger,
		StartTime:      startTime,
		AuthToken:      cfg.AuthToken(),
		AllowedOrigins: cfg.AllowedOrigins(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})

	if cfg.AuthToken() == "" {
		logger.Warn("auth token not set, session endpoints are open", "env", config.EnvAuthToken)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}

	logger.Info("initiating graceful shutdown")

	// SSE clients hold connections open; close the streams first so Shutdown can drain.
	if err := sessions.CloseAll(); err != nil {
		logger.Error("failed to close sessions", "error", err)
	}
	broker.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
