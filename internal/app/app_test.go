package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolokh/credstore/internal/domain/entity"
)

// A single end-to-end construction: telemetry registers collectors in the
// process-global prometheus registry, so New runs once per test binary.
func TestApplication_NewWithDefaults(t *testing.T) {
	t.Setenv("CREDSTORE_STORAGE_TYPE", "memory")
	t.Setenv("CREDSTORE_LOG_LEVEL", "error")

	ctx := context.Background()
	application, err := New(ctx, filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	t.Cleanup(func() { application.Shutdown() })

	require.NotNil(t, application.Students)
	require.NotNil(t, application.Certificates)

	student := entity.NewStudent("Alice Johnson", "XYZ University", "555-0100")
	student.AttachCertificate(entity.NewCertificate("CERT001", "https://example.com/cert001"))
	require.NoError(t, application.Students.Save(ctx, student))

	found, err := application.Students.GetByID(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Len(t, found.Certificates, 1)
}
