package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/avolokh/credstore/internal/infrastructure/config"
)

// DB wraps a MySQL database connection with pooling and context-carried
// transactions.
type DB struct {
	*sql.DB
	config *config.MySQLConfig
	echo   *slog.Logger // nil unless SQL echo is enabled
}

// NewDB creates a new MySQL database connection with connection pooling.
func NewDB(cfg *config.MySQLConfig) (*DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mysql config is required")
	}

	dsn := buildDSN(cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password, cfg.Charset, cfg.ParseTime, cfg.Timeout)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Pool.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{DB: db, config: cfg}, nil
}

// buildDSN constructs a MySQL DSN string.
// Format: user:password@tcp(host:port)/database?params
func buildDSN(host string, port int, database, username, password, charset string, parseTime bool, timeout time.Duration) string {
	// multiStatements lets a migration file carry several statements.
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&timeout=%s&multiStatements=true",
		username,
		password,
		host,
		port,
		database,
		charset,
		parseTime,
		timeout.String(),
	)
}

// SetEcho enables statement logging at debug level through the given logger.
// Pass nil to disable.
func (db *DB) SetEcho(logger *slog.Logger) {
	db.echo = logger
}

// Ping checks connectivity to the database.
func (db *DB) Ping(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
