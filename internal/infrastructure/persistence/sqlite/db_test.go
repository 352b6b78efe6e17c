package sqlite

import (
	"context"
	"testing"

	"github.com/avolokh/credstore/internal/infrastructure/config"
)

func setupDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupDB(t)

	// A second run must be a no-op, not a failure.
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestMigrate_FailsOnUnreadableVersionTable(t *testing.T) {
	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// A version table that exists but cannot be read is a real failure, not
	// a fresh database.
	if _, err := db.ExecContext(ctx, `CREATE TABLE schema_version (marker TEXT)`); err != nil {
		t.Fatalf("failed to create broken version table: %v", err)
	}

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("expected migrate to fail on unreadable schema_version table")
	}
}

func TestReconcile_ValidateFailsOnEmptyDatabase(t *testing.T) {
	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	defer db.Close()

	if err := db.Reconcile(context.Background(), config.SchemaValidate); err == nil {
		t.Fatal("expected validation failure on empty database")
	}
}

func TestReconcile_CreateThenValidate(t *testing.T) {
	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Reconcile(ctx, config.SchemaCreate); err != nil {
		t.Fatalf("create policy failed: %v", err)
	}
	if err := db.Reconcile(ctx, config.SchemaValidate); err != nil {
		t.Fatalf("validate after create failed: %v", err)
	}
}

func TestReconcile_RecreateDropsData(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, `INSERT INTO students (name) VALUES ('Alice')`); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	if err := db.Reconcile(ctx, config.SchemaRecreate); err != nil {
		t.Fatalf("recreate policy failed: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&count); err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty table after recreate, got %d rows", count)
	}
}

func TestReconcile_UnknownPolicy(t *testing.T) {
	db := setupDB(t)

	if err := db.Reconcile(context.Background(), config.SchemaPolicy("truncate")); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
