package database_test

import (
	"path/filepath"
	"testing"
	"time"

	"mediaplayer/internal/database"
	"mediaplayer/internal/media"
	"mediaplayer/internal/testutil"
)

// newTestStore creates an in-memory store with schema applied, driven by
// the given clock and real random tokens.
func newTestStore(t *testing.T, clock media.Clock) *database.SQLiteStore {
	t.Helper()

	db, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(database.Schema); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	store := database.NewSQLiteStoreFromDB(db, clock, nil)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestSQLiteStore_CreateShare(t *testing.T) {
	t.Run("persists a never-expiring share", func(t *testing.T) {
		clock := testutil.FixedClock()
		store := newTestStore(t, clock)

		created, err := store.CreateShare("sub/file.txt", nil)
		if err != nil {
			t.Fatalf("CreateShare() error = %v", err)
		}
		if len(created.Token) < 32 {
			t.Errorf("token %q too short", created.Token)
		}
		if created.ExpiresAt != nil {
			t.Errorf("ExpiresAt = %v, want nil", created.ExpiresAt)
		}

		got, err := store.GetByToken(created.Token)
		if err != nil {
			t.Fatalf("GetByToken() error = %v", err)
		}
		if got == nil {
			t.Fatal("GetByToken() returned nil, want share")
		}
		if got.FilePath != "sub/file.txt" {
			t.Errorf("FilePath = %q, want sub/file.txt", got.FilePath)
		}
		if !got.CreatedAt.Equal(clock.Now().UTC()) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, clock.Now().UTC())
		}
		if got.ExpiresAt != nil || got.RevokedAt != nil {
			t.Errorf("ExpiresAt = %v, RevokedAt = %v, want nil", got.ExpiresAt, got.RevokedAt)
		}
	})

	t.Run("computes expiry from ttl", func(t *testing.T) {
		clock := testutil.FixedClock()
		store := newTestStore(t, clock)

		ttl := time.Hour
		created, err := store.CreateShare("a.txt", &ttl)
		if err != nil {
			t.Fatalf("CreateShare() error = %v", err)
		}

		got, err := store.GetByToken(created.Token)
		if err != nil {
			t.Fatalf("GetByToken() error = %v", err)
		}
		want := clock.Now().UTC().Add(time.Hour)
		if got.ExpiresAt == nil || !got.ExpiresAt.Equal(want) {
			t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want)
		}
	})

	t.Run("tokens are unique", func(t *testing.T) {
		store := newTestStore(t, testutil.FixedClock())

		first, err := store.CreateShare("a.txt", nil)
		if err != nil {
			t.Fatalf("CreateShare() error = %v", err)
		}
		second, err := store.CreateShare("a.txt", nil)
		if err != nil {
			t.Fatalf("second CreateShare() error = %v", err)
		}
		if first.Token == second.Token {
			t.Error("two shares share a token")
		}
	})
}

func TestSQLiteStore_GetByToken(t *testing.T) {
	t.Run("returns nil when absent", func(t *testing.T) {
		store := newTestStore(t, testutil.FixedClock())
		got, err := store.GetByToken("nonexistent")
		if err != nil {
			t.Fatalf("GetByToken() error = %v", err)
		}
		if got != nil {
			t.Errorf("GetByToken() = %v, want nil", got)
		}
	})
}

func TestSQLiteStore_GetActiveByFilePath(t *testing.T) {
	t.Run("returns the most recent active share", func(t *testing.T) {
		clock := testutil.FixedClock()
		store := newTestStore(t, clock)

		if _, err := store.CreateShare("a.txt", nil); err != nil {
			t.Fatalf("CreateShare() error = %v", err)
		}
		clock.Advance(time.Minute)
		latest, err := store.CreateShare("a.txt", nil)
		if err != nil {
			t.Fatalf("second CreateShare() error = %v", err)
		}

		got, err := store.GetActiveByFilePath("a.txt")
		if err != nil {
			t.Fatalf("GetActiveByFilePath() error = %v", err)
		}
		if got == nil || got.Token != latest.Token {
			t.Errorf("GetActiveByFilePath() = %v, want token %q", got, latest.Token)
		}
	})

	t.Run("matches the exact string only", func(t *testing.T) {
		store := newTestStore(t, testutil.FixedClock())

		if _, err := store.CreateShare("a.txt", nil); err != nil {
			t.Fatalf("CreateShare() error = %v", err)
		}
		got, err := store.GetActiveByFilePath("./a.txt")
		if err != nil {
			t.Fatalf("GetActiveByFilePath() error = %v", err)
		}
		if got != nil {
			t.Errorf("GetActiveByFilePath(./a.txt) = %v, want nil", got)
		}
	})

	t.Run("skips revoked shares", func(t *testing.T) {
		store := newTestStore(t, testutil.FixedClock())

		created, err := store.CreateShare("b.txt", nil)
		if err != nil {
			t.Fatalf("CreateShare() error = %v", err)
		}
		if _, err := store.Revoke(created.Token); err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}

		got, err := store.GetActiveByFilePath("b.txt")
		if err != nil {
			t.Fatalf("GetActiveByFilePath() error = %v", err)
		}
		if got != nil {
			t.Errorf("GetActiveByFilePath() = %v, want nil after revoke", got)
		}
	})

	t.Run("skips expired shares", func(t *testing.T) {
		clock := testutil.FixedClock()
		store := newTestStore(t, clock)

		ttl := time.Hour
		if _, err := store.CreateShare("c.txt", &ttl); err != nil {
			t.Fatalf("CreateShare() error = %v", err)
		}

		got, err := store.GetActiveByFilePath("c.txt")
		if err != nil {
			t.Fatalf("GetActiveByFilePath() error = %v", err)
		}
		if got == nil {
			t.Fatal("GetActiveByFilePath() = nil before expiry")
		}

		clock.Advance(2 * time.Hour)
		got, err = store.GetActiveByFilePath("c.txt")
		if err != nil {
			t.Fatalf("GetActiveByFilePath() error = %v", err)
		}
		if got != nil {
			t.Errorf("GetActiveByFilePath() = %v, want nil after expiry", got)
		}
	})
}

func TestSQLiteStore_Revoke(t *testing.T) {
	t.Run("first call updates, later calls do not", func(t *testing.T) {
		store := newTestStore(t, testutil.FixedClock())

		created, err := store.CreateShare("d.txt", nil)
		if err != nil {
			t.Fatalf("CreateShare() error = %v", err)
		}

		changed, err := store.Revoke(created.Token)
		if err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}
		if !changed {
			t.Error("first Revoke() = false, want true")
		}

		changed, err = store.Revoke(created.Token)
		if err != nil {
			t.Fatalf("second Revoke() error = %v", err)
		}
		if changed {
			t.Error("second Revoke() = true, want false")
		}

		got, err := store.GetByToken(created.Token)
		if err != nil {
			t.Fatalf("GetByToken() error = %v", err)
		}
		if got.RevokedAt == nil {
			t.Error("RevokedAt not set")
		}
	})

	t.Run("unknown token changes nothing", func(t *testing.T) {
		store := newTestStore(t, testutil.FixedClock())
		changed, err := store.Revoke("nope")
		if err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}
		if changed {
			t.Error("Revoke(unknown) = true, want false")
		}
	})

	t.Run("revoking an expired share still stamps it", func(t *testing.T) {
		clock := testutil.FixedClock()
		store := newTestStore(t, clock)

		ttl := time.Minute
		created, err := store.CreateShare("e.txt", &ttl)
		if err != nil {
			t.Fatalf("CreateShare() error = %v", err)
		}
		clock.Advance(time.Hour)

		changed, err := store.Revoke(created.Token)
		if err != nil {
			t.Fatalf("Revoke() error = %v", err)
		}
		if !changed {
			t.Error("Revoke(expired) = false, want true")
		}
	})
}

func TestSQLiteStore_ListShares(t *testing.T) {
	clock := testutil.FixedClock()
	store := newTestStore(t, clock)

	var tokens []string
	for _, path := range []string{"a.txt", "b.txt", "c.txt"} {
		created, err := store.CreateShare(path, nil)
		if err != nil {
			t.Fatalf("CreateShare(%s) error = %v", path, err)
		}
		tokens = append(tokens, created.Token)
		clock.Advance(time.Second)
	}

	t.Run("newest first with limit", func(t *testing.T) {
		shares, err := store.ListShares(2)
		if err != nil {
			t.Fatalf("ListShares() error = %v", err)
		}
		if len(shares) != 2 {
			t.Fatalf("len(shares) = %d, want 2", len(shares))
		}
		if shares[0].Token != tokens[2] || shares[1].Token != tokens[1] {
			t.Errorf("shares not newest first: %q, %q", shares[0].Token, shares[1].Token)
		}
	})

	t.Run("non-positive limit yields nothing", func(t *testing.T) {
		for _, limit := range []int{0, -1, -20} {
			shares, err := store.ListShares(limit)
			if err != nil {
				t.Fatalf("ListShares(%d) error = %v", limit, err)
			}
			if len(shares) != 0 {
				t.Errorf("ListShares(%d) returned %d shares, want 0", limit, len(shares))
			}
		}
	})
}

func TestNewSQLiteStore(t *testing.T) {
	t.Run("creates store and parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "state", "shares.db")

		store, err := database.NewSQLiteStore(path, nil, nil)
		if err != nil {
			t.Fatalf("NewSQLiteStore() error = %v", err)
		}
		defer store.Close()

		if _, err := store.CreateShare("x.txt", nil); err != nil {
			t.Fatalf("CreateShare() error = %v", err)
		}
		if err := store.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})

	t.Run("reopening an existing store is idempotent", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "shares.db")

		first, err := database.NewSQLiteStore(path, nil, nil)
		if err != nil {
			t.Fatalf("NewSQLiteStore() error = %v", err)
		}
		created, err := first.CreateShare("x.txt", nil)
		if err != nil {
			t.Fatalf("CreateShare() error = %v", err)
		}
		first.Close()

		second, err := database.NewSQLiteStore(path, nil, nil)
		if err != nil {
			t.Fatalf("reopen NewSQLiteStore() error = %v", err)
		}
		defer second.Close()

		got, err := second.GetByToken(created.Token)
		if err != nil {
			t.Fatalf("GetByToken() error = %v", err)
		}
		if got == nil {
			t.Error("share lost across reopen")
		}
	})
}
