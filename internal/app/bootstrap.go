package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/avolokh/credstore/internal/infrastructure/config"
	"github.com/avolokh/credstore/internal/infrastructure/observability"
	"github.com/avolokh/credstore/internal/usecase/registry"
)

func (app *Application) bootstrap(ctx context.Context, configPath string) error {
	// 1. Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	app.config = cfg

	// 2. Setup logger
	app.logger = setupLogger(cfg.Logging)

	// 3. Setup telemetry
	telemetry, err := observability.NewTelemetry(observability.ServiceName, Version)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	app.telemetry = telemetry

	// 4. Open storage through the sticky provider
	app.provider = NewStorageProvider(cfg, app.logger)
	storage, err := app.provider.Get(ctx)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	app.storage = storage

	// 5. Wire services
	serviceLogger := registry.NewSlogLogger(app.logger)
	app.Students = registry.NewStudentService(
		storage.Students,
		storage.Certificates,
		storage.Tx,
		serviceLogger,
		telemetry.Metrics,
	)
	app.Certificates = registry.NewCertificateService(
		storage.Certificates,
		storage.Tx,
		serviceLogger,
		telemetry.Metrics,
	)

	return nil
}

// setupLogger builds the process logger from the logging config.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
