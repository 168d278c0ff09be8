// Package storagetest provides a migrated in-memory store for tests.
package storagetest

import (
	"testing"

	"familyeats/backend/internal/storage"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a storage service over a fresh SQLite in-memory database.
func New(t testing.TB) *storage.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	s := storage.NewStorageService(db, nil, nil)
	require.NoError(t, s.Migrate())
	return s
}
