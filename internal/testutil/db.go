// Package testutil holds helpers shared by storage-backed tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/giraph/engine/internal/models"
	"github.com/giraph/engine/pkg/database"
)

// NewDB opens a migrated SQLite database in a per-test temp dir.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(context.Background(), database.Options{Driver: "sqlite", DSN: dsn, Logger: zap.NewNop()})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewCourse inserts a course with the given code.
func NewCourse(t testing.TB, db *gorm.DB, code string) *models.Course {
	t.Helper()
	c := &models.Course{Code: code, Name: code + " course"}
	require.NoError(t, db.Create(c).Error)
	return c
}
