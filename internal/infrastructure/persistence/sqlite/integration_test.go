package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolokh/credstore/internal/domain/entity"
)

// TestPersistenceAcrossRestart verifies that data survives database restart.
func TestPersistenceAcrossRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	var studentID int64

	// Phase 1: Create database, save data, close
	func() {
		db, err := NewDB(dbPath)
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, db.Migrate(ctx))
		repos := NewRepositories(db)

		student := entity.NewStudent("Alice Johnson", "XYZ University", "555-0100")
		err = db.WithTransaction(ctx, func(ctx context.Context) error {
			if err := repos.Students.Insert(ctx, student); err != nil {
				return err
			}
			cert := entity.NewCertificate("CERT001", "https://example.com/cert001")
			cert.StudentID = student.ID
			return repos.Certificates.Insert(ctx, cert)
		})
		require.NoError(t, err)
		studentID = student.ID
	}()

	// Phase 2: Reopen and verify
	db, err := NewDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate(ctx))
	repos := NewRepositories(db)

	student, err := repos.Students.FindByID(ctx, studentID)
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Equal(t, "Alice Johnson", student.Name)
	assert.Equal(t, "XYZ University", student.College)
	assert.True(t, student.Active)
	require.Len(t, student.Certificates, 1)
	assert.Equal(t, "CERT001", student.Certificates[0].Code)
}

// TestCascadeInsertAndDeleteWithinTransactions exercises the aggregate
// lifecycle the way the service layer drives it.
func TestCascadeInsertAndDeleteWithinTransactions(t *testing.T) {
	db := setupDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	student := entity.NewStudent("Alice Johnson", "XYZ University", "555-0100")
	certCodes := []string{"CERT001", "CERT002"}

	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repos.Students.Insert(ctx, student); err != nil {
			return err
		}
		for _, code := range certCodes {
			cert := entity.NewCertificate(code, "")
			cert.StudentID = student.ID
			if err := repos.Certificates.Insert(ctx, cert); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	owned, err := repos.Certificates.FindByStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	err = db.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := repos.Certificates.DeleteByStudent(ctx, student.ID); err != nil {
			return err
		}
		return repos.Students.Delete(ctx, student.ID)
	})
	require.NoError(t, err)

	owned, err = repos.Certificates.FindByStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Empty(t, owned)

	gone, err := repos.Students.FindByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

// TestRollbackLeavesNoPartialAggregate forces a failure while persisting a
// dependent and verifies the owner was not partially committed.
func TestRollbackLeavesNoPartialAggregate(t *testing.T) {
	db := setupDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	student := entity.NewStudent("Alice Johnson", "XYZ University", "555-0100")

	// Duplicate certificate codes force the second insert to fail.
	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repos.Students.Insert(ctx, student); err != nil {
			return err
		}
		for _, code := range []string{"CERT001", "CERT001"} {
			cert := entity.NewCertificate(code, "")
			cert.StudentID = student.ID
			if err := repos.Certificates.Insert(ctx, cert); err != nil {
				return err
			}
		}
		return nil
	})
	require.Error(t, err)

	found, err := repos.Students.FindByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Nil(t, found, "owner must not be partially committed")
}
