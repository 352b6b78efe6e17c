package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/avolokh/credstore/internal/infrastructure/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps a sql.DB connection with SQLite-specific functionality: pragmas,
// schema reconciliation, and context-carried transactions.
type DB struct {
	*sql.DB
	path string
	echo *slog.Logger // nil unless SQL echo is enabled
}

// NewDB creates a new SQLite database connection.
// Use ":memory:" for an in-memory database.
func NewDB(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)", path)
	} else {
		dsn = "file::memory:?_pragma=foreign_keys(ON)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite works best with a single connection for writes. This also keeps
	// an in-memory database on one connection so it is not torn down between
	// uses.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{DB: db, path: path}, nil
}

// SetEcho enables statement logging at debug level through the given logger.
// Pass nil to disable.
func (db *DB) SetEcho(logger *slog.Logger) {
	db.echo = logger
}

// Reconcile brings the schema in line with the configured policy.
func (db *DB) Reconcile(ctx context.Context, policy config.SchemaPolicy) error {
	switch policy {
	case config.SchemaValidate:
		return db.validateSchema(ctx)
	case config.SchemaCreate, config.SchemaUpdate:
		return db.Migrate(ctx)
	case config.SchemaRecreate:
		if err := db.dropSchema(ctx); err != nil {
			return err
		}
		return db.Migrate(ctx)
	default:
		return fmt.Errorf("unknown schema policy: %s", policy)
	}
}

// Migrate runs all pending database migrations.
func (db *DB) Migrate(ctx context.Context) error {
	var currentVersion int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		// A fresh database has no version table yet; anything else is a real
		// failure and must not be papered over by re-running migrations.
		exists, existsErr := db.tableExists(ctx, "schema_version")
		if existsErr != nil {
			return fmt.Errorf("check schema version table: %w", existsErr)
		}
		if exists {
			return fmt.Errorf("read schema version: %w", err)
		}
		currentVersion = 0
	}

	data, err := migrations.ReadFile("migrations/001_initial.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}

	if currentVersion < 1 {
		if _, err := db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// validateSchema checks that the required tables exist without touching them.
func (db *DB) validateSchema(ctx context.Context) error {
	for _, table := range []string{"students", "certificates"} {
		exists, err := db.tableExists(ctx, table)
		if err != nil {
			return fmt.Errorf("schema validation: %w", err)
		}
		if !exists {
			return fmt.Errorf("schema validation: table %s is missing", table)
		}
	}
	return nil
}

// tableExists reports whether a table is present in sqlite_master.
func (db *DB) tableExists(ctx context.Context, table string) (bool, error) {
	var name string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// dropSchema removes the known tables so Migrate can rebuild them.
func (db *DB) dropSchema(ctx context.Context) error {
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS certificates`,
		`DROP TABLE IF EXISTS students`,
		`DROP TABLE IF EXISTS schema_version`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection with proper cleanup.
func (db *DB) Close() error {
	// Force WAL checkpoint before close (only for file-based databases)
	if db.path != ":memory:" {
		_, _ = db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return db.DB.Close()
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}
