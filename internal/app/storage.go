package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/avolokh/credstore/internal/domain/repository"
	"github.com/avolokh/credstore/internal/infrastructure/config"
	"github.com/avolokh/credstore/internal/infrastructure/persistence/memory"
	"github.com/avolokh/credstore/internal/infrastructure/persistence/mysql"
	"github.com/avolokh/credstore/internal/infrastructure/persistence/sqlite"
)

// Storage bundles the repositories and transaction manager of one backend
// behind the domain contracts.
type Storage struct {
	Students     repository.StudentRepository
	Certificates repository.CertificateRepository
	Tx           repository.TransactionManager

	closer io.Closer // nil for the memory backend
}

// Close releases the underlying storage handle.
func (s *Storage) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// StorageProvider constructs the storage handle on first use. A process holds
// exactly one handle: concurrent first callers observe a single completed
// construction, and a failed construction is sticky — every later call
// returns the same error without retrying.
type StorageProvider struct {
	cfg    *config.Config
	logger *slog.Logger

	once    sync.Once
	storage *Storage
	err     error
}

// NewStorageProvider creates a deferred storage factory for the configured
// backend. Nothing is opened until Get is called.
func NewStorageProvider(cfg *config.Config, logger *slog.Logger) *StorageProvider {
	return &StorageProvider{cfg: cfg, logger: logger}
}

// Get returns the process-wide storage handle, constructing it on the first
// call.
func (p *StorageProvider) Get(ctx context.Context) (*Storage, error) {
	p.once.Do(func() {
		p.storage, p.err = openStorage(ctx, p.cfg, p.logger)
	})
	return p.storage, p.err
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	switch cfg.Storage.Type {
	case "mysql":
		db, err := mysql.NewDB(&cfg.Storage.MySQL)
		if err != nil {
			return nil, fmt.Errorf("mysql init: %w", err)
		}
		if cfg.Logging.EchoSQL {
			db.SetEcho(logger)
		}

		if err := mysql.NewMigrator(db.DB).Reconcile(ctx, cfg.Storage.SchemaPolicy); err != nil {
			db.Close()
			return nil, fmt.Errorf("mysql schema reconciliation: %w", err)
		}

		repos := mysql.NewRepositories(db)
		logger.Info("MySQL storage initialized",
			"host", cfg.Storage.MySQL.Host,
			"database", cfg.Storage.MySQL.Database,
			"schemaPolicy", cfg.Storage.SchemaPolicy,
		)
		return &Storage{
			Students:     repos.Students,
			Certificates: repos.Certificates,
			Tx:           db,
			closer:       db,
		}, nil

	case "sqlite":
		db, err := sqlite.NewDB(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite init: %w", err)
		}
		if cfg.Logging.EchoSQL {
			db.SetEcho(logger)
		}

		if err := db.Reconcile(ctx, cfg.Storage.SchemaPolicy); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite schema reconciliation: %w", err)
		}

		repos := sqlite.NewRepositories(db)
		logger.Info("SQLite storage initialized",
			"path", cfg.Storage.SQLite.Path,
			"schemaPolicy", cfg.Storage.SchemaPolicy,
		)
		return &Storage{
			Students:     repos.Students,
			Certificates: repos.Certificates,
			Tx:           db,
			closer:       db,
		}, nil

	case "memory", "":
		store := memory.NewStore()
		repos := memory.NewRepositories(store)
		logger.Info("in-memory storage initialized")
		return &Storage{
			Students:     repos.Students,
			Certificates: repos.Certificates,
			Tx:           store,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}
