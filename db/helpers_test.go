package db

import (
	"adventcal/config"
	"adventcal/models"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func createTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		StoreDriver:  config.DriverFile,
		DbFilePath:   filepath.Join(t.TempDir(), "test_db.json"),
		SaveInterval: 10 * time.Millisecond,
		EnableBackup: true,
		BcryptCost:   4,
	}
}

func setupFileStore(t *testing.T) (*FileStore, *config.Config) {
	t.Helper()
	cfg := createTestConfig(t)
	fs, err := NewFileStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Close() })
	return fs, cfg
}

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func setupRepository(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(setupSQLiteStore(t))
}

func strPtr(s string) *string { return &s }

func testCalendar(id, creator, recipient string, createdAt time.Time) models.Calendar {
	return models.NewCalendar(id, creator, recipient, "astronomy", nil, createdAt)
}
