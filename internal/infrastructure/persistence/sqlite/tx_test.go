package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/avolokh/credstore/internal/domain/entity"
)

func TestWithTransaction_Commit(t *testing.T) {
	db := setupDB(t)
	repo := NewStudentRepository(db)
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		return repo.Insert(ctx, entity.NewStudent("Alice", "XYZ", ""))
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 student after commit, got %d", count)
	}
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db := setupDB(t)
	repo := NewStudentRepository(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Insert(ctx, entity.NewStudent("Alice", "XYZ", "")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected failure to propagate unchanged, got %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 students after rollback, got %d", count)
	}
}

func TestWithTransaction_RollbackOnPanic(t *testing.T) {
	db := setupDB(t)
	repo := NewStudentRepository(db)
	ctx := context.Background()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = db.WithTransaction(ctx, func(ctx context.Context) error {
			_ = repo.Insert(ctx, entity.NewStudent("Alice", "XYZ", ""))
			panic("mid-transaction failure")
		})
	}()

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 students after panic rollback, got %d", count)
	}
}

func TestWithTransaction_NestedJoinsEnclosingScope(t *testing.T) {
	db := setupDB(t)
	repo := NewStudentRepository(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Insert(ctx, entity.NewStudent("Alice", "XYZ", "")); err != nil {
			return err
		}
		// Inner scope joins the outer transaction; its writes roll back with it.
		if err := db.WithTransaction(ctx, func(ctx context.Context) error {
			return repo.Insert(ctx, entity.NewStudent("Bob", "ABC", ""))
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 students, got %d", count)
	}
}
