package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolokh/credstore/internal/infrastructure/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func memoryConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Type: "memory"},
	}
}

func TestStorageProvider_MemoryBackend(t *testing.T) {
	provider := NewStorageProvider(memoryConfig(), discardLogger())

	storage, err := provider.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, storage)
	assert.NotNil(t, storage.Students)
	assert.NotNil(t, storage.Certificates)
	assert.NotNil(t, storage.Tx)
	assert.NoError(t, storage.Close())
}

func TestStorageProvider_SQLiteBackend(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{
			Type:         "sqlite",
			SchemaPolicy: config.SchemaCreate,
			SQLite:       config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
		},
	}
	provider := NewStorageProvider(cfg, discardLogger())

	storage, err := provider.Get(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	count, err := storage.Students.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStorageProvider_UnknownTypeFails(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Type: "cassandra"}}
	provider := NewStorageProvider(cfg, discardLogger())

	_, err := provider.Get(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")
}

func TestStorageProvider_FailureIsSticky(t *testing.T) {
	// validate policy on a fresh database fails construction; every later
	// call must observe the same failure without a retry.
	cfg := &config.Config{
		Storage: config.StorageConfig{
			Type:         "sqlite",
			SchemaPolicy: config.SchemaValidate,
			SQLite:       config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "empty.db")},
		},
	}
	provider := NewStorageProvider(cfg, discardLogger())

	_, firstErr := provider.Get(context.Background())
	require.Error(t, firstErr)

	_, secondErr := provider.Get(context.Background())
	require.Error(t, secondErr)
	assert.Equal(t, firstErr, secondErr)
}

func TestStorageProvider_ConcurrentFirstUse(t *testing.T) {
	provider := NewStorageProvider(memoryConfig(), discardLogger())

	const callers = 16
	results := make([]*Storage, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			storage, err := provider.Get(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = storage
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i], "caller %d observed a different handle", i)
	}
}
