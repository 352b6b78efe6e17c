// Package registry implements the application services over the student and
// certificate repositories. Each operation runs as one unit of work: a
// failure rolls the work back before the error is surfaced.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/avolokh/credstore/internal/domain/repository"
)

// Logger defines the contract for logging within services.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// slogLogger adapts *slog.Logger to the Logger contract.
type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps an slog logger for use by the services.
func NewSlogLogger(logger *slog.Logger) Logger {
	return &slogLogger{logger: logger}
}

func (l *slogLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *slogLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *slogLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warn(msg, keysAndValues...)
}

func (l *slogLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error(msg, keysAndValues...)
}

// nopLogger discards everything. Used when no logger is supplied.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// wrapPersistence classifies a failed operation. Domain sentinels pass
// through unchanged so callers can match on them; anything else is a storage
// failure and gets the ErrPersistence mark. The unit of work has already been
// rolled back by the time this runs.
func wrapPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		repository.ErrInvalidArgument,
		repository.ErrAmbiguousResult,
		repository.ErrNotPersisted,
		repository.ErrDuplicateCode,
	} {
		if errors.Is(err, sentinel) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
}
