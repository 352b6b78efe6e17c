package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/avolokh/credstore/internal/domain/entity"
	"github.com/avolokh/credstore/internal/domain/repository"
	"github.com/avolokh/credstore/internal/infrastructure/observability"
	"github.com/avolokh/credstore/internal/infrastructure/persistence/memory"
	"github.com/avolokh/credstore/internal/infrastructure/persistence/sqlite"
)

// setupServices wires both services over an in-memory sqlite database so
// transactional behavior is exercised for real.
func setupServices(t *testing.T) (*StudentService, *CertificateService) {
	t.Helper()

	db, err := sqlite.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	repos := sqlite.NewRepositories(db)
	students := NewStudentService(repos.Students, repos.Certificates, db, nil, nil)
	certs := NewCertificateService(repos.Certificates, db, nil, nil)
	return students, certs
}

// setupMemoryServices wires the services over the memory backend, which must
// honor the same unit-of-work semantics as the SQL backends.
func setupMemoryServices(t *testing.T) (*StudentService, *CertificateService) {
	t.Helper()

	store := memory.NewStore()
	repos := memory.NewRepositories(store)
	students := NewStudentService(repos.Students, repos.Certificates, store, nil, nil)
	certs := NewCertificateService(repos.Certificates, store, nil, nil)
	return students, certs
}

func TestStudentService_SaveCascadesCertificates(t *testing.T) {
	students, _ := setupServices(t)
	ctx := context.Background()

	student := entity.NewStudent("Alice Johnson", "XYZ University", "555-0100")
	student.AttachCertificate(entity.NewCertificate("CERT001", "https://example.com/cert001"))
	student.AttachCertificate(entity.NewCertificate("CERT002", ""))

	require.NoError(t, students.Save(ctx, student))
	assert.NotZero(t, student.ID)

	found, err := students.GetByID(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, found.Certificates, 2)
	assert.Equal(t, student.ID, found.Certificates[0].StudentID)
}

func TestStudentService_SaveRollsBackOnDuplicateCode(t *testing.T) {
	students, _ := setupServices(t)
	ctx := context.Background()

	first := entity.NewStudent("Alice", "XYZ University", "")
	first.AttachCertificate(entity.NewCertificate("CERT001", ""))
	require.NoError(t, students.Save(ctx, first))

	// Second aggregate fails mid-cascade on the duplicate code; nothing of
	// it may survive.
	second := entity.NewStudent("Bob", "ABC College", "")
	second.AttachCertificate(entity.NewCertificate("CERT-NEW", ""))
	second.AttachCertificate(entity.NewCertificate("CERT001", ""))

	err := students.Save(ctx, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrDuplicateCode)

	all, err := students.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Alice", all[0].Name)

	orphans, err := students.FindBy(ctx, repository.Eq(repository.FieldName, "Bob"))
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestStudentService_SaveRollsBackOnDuplicateCodeMemoryBackend(t *testing.T) {
	students, _ := setupMemoryServices(t)
	ctx := context.Background()

	first := entity.NewStudent("Alice", "XYZ University", "")
	first.AttachCertificate(entity.NewCertificate("CERT001", ""))
	require.NoError(t, students.Save(ctx, first))

	second := entity.NewStudent("Bob", "ABC College", "")
	second.AttachCertificate(entity.NewCertificate("CERT-NEW", ""))
	second.AttachCertificate(entity.NewCertificate("CERT001", ""))

	err := students.Save(ctx, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrDuplicateCode)

	// The partially inserted aggregate must not be observable afterwards.
	gone, err := students.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	all, err := students.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Alice", all[0].Name)
}

func TestStudentService_GetByIDAbsentIsNotAnError(t *testing.T) {
	students, _ := setupServices(t)

	found, err := students.GetByID(context.Background(), 12345)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestStudentService_UpdateIsIdempotent(t *testing.T) {
	students, _ := setupServices(t)
	ctx := context.Background()

	student := entity.NewStudent("Alice", "XYZ University", "555-0100")
	require.NoError(t, students.Save(ctx, student))

	student.College = "ABC College"
	require.NoError(t, students.Update(ctx, student))
	require.NoError(t, students.Update(ctx, student))

	found, err := students.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "ABC College", found.College)
}

func TestStudentService_UpdateMergesUnknownIdentity(t *testing.T) {
	students, _ := setupServices(t)
	ctx := context.Background()

	detached := entity.NewStudent("Ghost", "Nowhere", "")
	detached.ID = 77
	require.NoError(t, students.Update(ctx, detached))

	found, err := students.GetByID(ctx, 77)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Ghost", found.Name)
}

func TestStudentService_UpdateExistingRejectsUnknownIdentity(t *testing.T) {
	students, _ := setupServices(t)
	ctx := context.Background()

	detached := entity.NewStudent("Ghost", "Nowhere", "")
	detached.ID = 77

	err := students.UpdateExisting(ctx, detached)
	assert.ErrorIs(t, err, repository.ErrNotPersisted)

	found, err := students.GetByID(ctx, 77)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestStudentService_UpdateRemovesOrphanedCertificates(t *testing.T) {
	students, certs := setupServices(t)
	ctx := context.Background()

	student := entity.NewStudent("Alice", "XYZ University", "")
	student.AttachCertificate(entity.NewCertificate("CERT001", ""))
	student.AttachCertificate(entity.NewCertificate("CERT002", ""))
	require.NoError(t, students.Save(ctx, student))

	loaded, err := students.GetByID(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Certificates, 2)

	removedID := loaded.Certificates[0].ID
	require.True(t, loaded.DetachCertificate(removedID))
	require.NoError(t, students.Update(ctx, loaded))

	// The detached certificate is gone from storage, not just the
	// collection.
	gone, err := certs.GetByID(ctx, removedID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	remaining, err := certs.FindByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "CERT002", remaining[0].Code)
}

func TestStudentService_UpdateAddsNewCertificates(t *testing.T) {
	students, certs := setupServices(t)
	ctx := context.Background()

	student := entity.NewStudent("Alice", "XYZ University", "")
	require.NoError(t, students.Save(ctx, student))

	loaded, err := students.GetByID(ctx, student.ID)
	require.NoError(t, err)
	loaded.AttachCertificate(entity.NewCertificate("CERT001", ""))
	require.NoError(t, students.Update(ctx, loaded))

	owned, err := certs.FindByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "CERT001", owned[0].Code)
}

func TestStudentService_DeleteCascadesAndReportsAbsence(t *testing.T) {
	students, certs := setupServices(t)
	ctx := context.Background()

	student := entity.NewStudent("Alice", "XYZ University", "")
	student.AttachCertificate(entity.NewCertificate("CERT001", ""))
	require.NoError(t, students.Save(ctx, student))

	found, err := students.Delete(ctx, student.ID)
	require.NoError(t, err)
	assert.True(t, found)

	owned, err := certs.FindByStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Empty(t, owned)

	// Deleting again is a committed no-op.
	found, err = students.Delete(ctx, student.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStudentService_GetPageCoversAllRecordsOnce(t *testing.T) {
	students, _ := setupServices(t)
	ctx := context.Background()

	const total, size = 7, 3
	for i := 0; i < total; i++ {
		require.NoError(t, students.Save(ctx, entity.NewStudent(fmt.Sprintf("Student %02d", i), "XYZ University", "")))
	}

	seen := make(map[int64]bool)
	pages := 0
	for page := 0; ; page++ {
		batch, err := students.GetPage(ctx, page, size)
		require.NoError(t, err)
		if len(batch) == 0 {
			break
		}
		pages++
		for _, s := range batch {
			require.False(t, seen[s.ID], "student %d appeared twice", s.ID)
			seen[s.ID] = true
		}
	}

	assert.Len(t, seen, total)
	assert.Equal(t, (total+size-1)/size, pages)
}

func TestStudentService_GetPageRejectsInvalidArguments(t *testing.T) {
	students, _ := setupServices(t)
	ctx := context.Background()

	_, err := students.GetPage(ctx, -1, 10)
	assert.ErrorIs(t, err, repository.ErrInvalidArgument)

	_, err = students.GetPage(ctx, 0, 0)
	assert.ErrorIs(t, err, repository.ErrInvalidArgument)

	_, err = students.GetPage(ctx, 0, -5)
	assert.ErrorIs(t, err, repository.ErrInvalidArgument)
}

func TestStudentService_FindByName(t *testing.T) {
	students, _ := setupServices(t)
	ctx := context.Background()

	require.NoError(t, students.Save(ctx, entity.NewStudent("Alice Johnson", "XYZ University", "")))

	found, err := students.FindByName(ctx, "Alice Johnson")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Alice Johnson", found.Name)

	missing, err := students.FindByName(ctx, "Nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStudentService_FindByNameAmbiguous(t *testing.T) {
	students, _ := setupServices(t)
	ctx := context.Background()

	require.NoError(t, students.Save(ctx, entity.NewStudent("Alice", "XYZ University", "")))
	require.NoError(t, students.Save(ctx, entity.NewStudent("Alice", "ABC College", "")))

	_, err := students.FindByName(ctx, "Alice")
	assert.ErrorIs(t, err, repository.ErrAmbiguousResult)
}

func TestStudentService_FindByMatchesFindByName(t *testing.T) {
	students, _ := setupServices(t)
	ctx := context.Background()

	require.NoError(t, students.Save(ctx, entity.NewStudent("Alice", "XYZ University", "")))
	require.NoError(t, students.Save(ctx, entity.NewStudent("Bob", "XYZ University", "")))

	byPredicate, err := students.FindBy(ctx, repository.Eq(repository.FieldName, "Alice"))
	require.NoError(t, err)
	require.Len(t, byPredicate, 1)

	byName, err := students.FindByName(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, byName.ID, byPredicate[0].ID)
}

func TestStudentService_ErrorsCarryPersistenceMark(t *testing.T) {
	students, _ := setupServices(t)
	ctx := context.Background()

	s := entity.NewStudent("Alice", "XYZ University", "")
	s.ID = 1
	require.NoError(t, students.Save(ctx, s))

	// Forcing a primary key collision through a preset identity surfaces as
	// a persistence failure, not a raw driver error.
	clash := entity.NewStudent("Imposter", "ABC College", "")
	clash.ID = 1
	err := students.Save(ctx, clash)
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrPersistence))
}

func TestStudentService_RecordsTransactionMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := observability.NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	store := memory.NewStore()
	repos := memory.NewRepositories(store)
	students := NewStudentService(repos.Students, repos.Certificates, store, nil, metrics)
	ctx := context.Background()

	require.NoError(t, students.Save(ctx, entity.NewStudent("Alice", "XYZ University", "")))

	clash := entity.NewStudent("Imposter", "ABC College", "")
	clash.ID = 1
	require.Error(t, students.Save(ctx, clash))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(2), totals["transactions.total"])
	assert.Equal(t, int64(1), totals["transactions.rollbacks.total"])
}
