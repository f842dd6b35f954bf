package testutil

import (
	"testing"

	"mediaplayer/internal/database"
	"mediaplayer/internal/media"
)

// NewTestStore creates an in-memory SQLite share store with the schema
// applied. nil clock/tokens select the real implementations. The store is
// closed automatically when the test completes.
func NewTestStore(t *testing.T, clock media.Clock, tokens media.TokenSource) *database.SQLiteStore {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if _, err := sqlDB.Exec(database.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	store := database.NewSQLiteStoreFromDB(sqlDB, clock, tokens)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
