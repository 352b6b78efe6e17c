package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// executor is the subset of sql.DB and sql.Tx the repositories use.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txKey is the context key under which an active transaction travels.
type txKey struct{}

// getExecutor returns the transaction stashed in ctx by WithTransaction, or
// the pooled connection when no transaction is active.
func (db *DB) getExecutor(ctx context.Context) executor {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return db.wrapEcho(tx)
	}
	return db.wrapEcho(db.DB)
}

// WithTransaction brackets fn in a single commit-or-rollback scope. See the
// sqlite twin for the full contract; behavior is identical.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// wrapEcho returns the executor unchanged unless SQL echo is enabled.
func (db *DB) wrapEcho(e executor) executor {
	if db.echo == nil {
		return e
	}
	return &echoExecutor{inner: e, db: db}
}

// echoExecutor logs every statement at debug level before delegating.
type echoExecutor struct {
	inner executor
	db    *DB
}

func (e *echoExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	e.db.echo.Debug("sql exec", "query", query, "args", args)
	return e.inner.ExecContext(ctx, query, args...)
}

func (e *echoExecutor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	e.db.echo.Debug("sql query", "query", query, "args", args)
	return e.inner.QueryContext(ctx, query, args...)
}

func (e *echoExecutor) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	e.db.echo.Debug("sql query row", "query", query, "args", args)
	return e.inner.QueryRowContext(ctx, query, args...)
}
