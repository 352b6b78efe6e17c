package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolokh/credstore/internal/domain/entity"
	"github.com/avolokh/credstore/internal/domain/repository"
)

// saveOwner persists a student so certificates have a valid back-reference.
func saveOwner(t *testing.T, students *StudentService) *entity.Student {
	t.Helper()
	s := entity.NewStudent("Alice", "XYZ University", "")
	require.NoError(t, students.Save(context.Background(), s))
	return s
}

func TestCertificateService_SaveAndGet(t *testing.T) {
	students, certs := setupServices(t)
	ctx := context.Background()
	owner := saveOwner(t, students)

	cert := entity.NewCertificate("CERT001", "https://example.com/cert001")
	cert.StudentID = owner.ID
	require.NoError(t, certs.Save(ctx, cert))
	assert.NotZero(t, cert.ID)

	found, err := certs.GetByID(ctx, cert.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "CERT001", found.Code)
}

func TestCertificateService_SaveDuplicateCode(t *testing.T) {
	students, certs := setupServices(t)
	ctx := context.Background()
	owner := saveOwner(t, students)

	first := entity.NewCertificate("CERT001", "")
	first.StudentID = owner.ID
	require.NoError(t, certs.Save(ctx, first))

	dup := entity.NewCertificate("CERT001", "")
	dup.StudentID = owner.ID
	err := certs.Save(ctx, dup)
	assert.ErrorIs(t, err, repository.ErrDuplicateCode)
}

func TestCertificateService_UpdateMergesUnknownIdentity(t *testing.T) {
	students, certs := setupServices(t)
	ctx := context.Background()
	owner := saveOwner(t, students)

	detached := &entity.Certificate{ID: 55, Code: "CERT055", StudentID: owner.ID}
	require.NoError(t, certs.Update(ctx, detached))

	found, err := certs.GetByID(ctx, 55)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "CERT055", found.Code)
}

func TestCertificateService_UpdateExistingRejectsUnknownIdentity(t *testing.T) {
	students, certs := setupServices(t)
	ctx := context.Background()
	owner := saveOwner(t, students)

	detached := &entity.Certificate{ID: 55, Code: "CERT055", StudentID: owner.ID}
	err := certs.UpdateExisting(ctx, detached)
	assert.ErrorIs(t, err, repository.ErrNotPersisted)
}

func TestCertificateService_DeleteReportsAbsence(t *testing.T) {
	students, certs := setupServices(t)
	ctx := context.Background()
	owner := saveOwner(t, students)

	cert := entity.NewCertificate("CERT001", "")
	cert.StudentID = owner.ID
	require.NoError(t, certs.Save(ctx, cert))

	found, err := certs.Delete(ctx, cert.ID)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = certs.Delete(ctx, cert.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCertificateService_FindByCode(t *testing.T) {
	students, certs := setupServices(t)
	ctx := context.Background()
	owner := saveOwner(t, students)

	cert := entity.NewCertificate("CERT001", "")
	cert.StudentID = owner.ID
	require.NoError(t, certs.Save(ctx, cert))

	found, err := certs.FindByCode(ctx, "CERT001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, cert.ID, found.ID)

	missing, err := certs.FindByCode(ctx, "CERT999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCertificateService_FindByStudentUnknownOwner(t *testing.T) {
	_, certs := setupServices(t)

	owned, err := certs.FindByStudent(context.Background(), 12345)
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestCertificateService_FindByRejectsForeignField(t *testing.T) {
	_, certs := setupServices(t)

	_, err := certs.FindBy(context.Background(), repository.Eq(repository.FieldCollege, "XYZ"))
	assert.ErrorIs(t, err, repository.ErrInvalidArgument)
}
