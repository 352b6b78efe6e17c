// Package app wires configuration, logging, telemetry, storage and the
// registry services into one application instance.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/avolokh/credstore/internal/infrastructure/config"
	"github.com/avolokh/credstore/internal/infrastructure/observability"
	"github.com/avolokh/credstore/internal/usecase/registry"
)

// Version is stamped at build time.
var Version = "dev"

// Application holds all application dependencies and lifecycle.
type Application struct {
	config    *config.Config
	logger    *slog.Logger
	telemetry *observability.Telemetry

	provider *StorageProvider
	storage  *Storage

	Students     *registry.StudentService
	Certificates *registry.CertificateService
}

// New creates a new Application instance from the config at configPath.
// Storage is opened eagerly so a misconfigured backend fails here, not on
// the first operation.
func New(ctx context.Context, configPath string) (*Application, error) {
	app := &Application{}
	if err := app.bootstrap(ctx, configPath); err != nil {
		return nil, err
	}
	return app, nil
}

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger {
	return app.logger
}

// Config returns the loaded configuration.
func (app *Application) Config() *config.Config {
	return app.config
}

// Shutdown releases storage and telemetry.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down credstore")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if app.telemetry != nil {
		if err := app.telemetry.Shutdown(ctx); err != nil {
			app.logger.Error("failed to shutdown telemetry", "error", err)
		}
	}

	if app.storage != nil {
		if err := app.storage.Close(); err != nil {
			app.logger.Error("failed to close storage", "error", err)
			return err
		}
	}

	app.logger.Info("credstore stopped")
	return nil
}
