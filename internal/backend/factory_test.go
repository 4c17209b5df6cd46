package backend

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creche/internal/config"
	"creche/internal/log"
)

func quietFactory() Factory {
	return NewFactory(log.New(log.Config{Format: "json", Output: &bytes.Buffer{}}))
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := quietFactory().CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	require.NoError(t, err)
	defer res.Cleanup()

	children, err := res.Store.ListChildren(context.Background())
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestCreateSQLiteBackend(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "creche.db")
	res, err := quietFactory().CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: dbPath})
	require.NoError(t, err)
	defer res.Cleanup()

	payments, err := res.Store.ListPayments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestCreateBackendInvalid(t *testing.T) {
	_, err := quietFactory().CreateBackend(context.Background(), Config{Type: "sheets"})
	assert.Error(t, err)

	_, err = quietFactory().CreateBackend(context.Background(), Config{Type: SQLiteBackend})
	assert.EqualError(t, err, "SQLite database path is required for sqlite backend")
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", DataDir: "d"})
	require.NoError(t, err)
	assert.Equal(t, Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", DataDirectory: "d"}, cfg)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid: sqlite, memory")

	assert.Equal(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}
