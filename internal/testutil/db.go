package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/codr1/Rollcall/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// MustExec runs a seeding statement and fails the test on error.
func MustExec(t *testing.T, database *db.DB, query string, args ...any) {
	t.Helper()

	if _, err := database.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
