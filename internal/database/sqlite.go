package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mediaplayer/internal/database/migrations"
	"mediaplayer/internal/media"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements media.ShareStore on a local SQLite file. Every
// operation is a single statement on a shared connection pool; no
// transaction spans multiple logical operations.
type SQLiteStore struct {
	db     *sql.DB
	clock  media.Clock
	tokens media.TokenSource
	path   string
}

// OpenConnection opens and configures a SQLite connection, creating
// missing parent directories first. path can be a file path or
// ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Foreign keys default to OFF in SQLite for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (or creates) the store at path and applies any
// pending migrations, so calling it against an existing store is an
// idempotent no-op upgrade. nil clock/tokens select the real
// implementations.
func NewSQLiteStore(path string, clock media.Clock, tokens media.TokenSource) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating share store: %w", err)
	}
	s := NewSQLiteStoreFromDB(db, clock, tokens)
	s.path = path
	return s, nil
}

// NewSQLiteStoreFromDB wraps an existing connection. The caller is
// responsible for the schema being in place.
func NewSQLiteStoreFromDB(db *sql.DB, clock media.Clock, tokens media.TokenSource) *SQLiteStore {
	if clock == nil {
		clock = media.RealClock{}
	}
	if tokens == nil {
		tokens = media.RandomTokenSource{}
	}
	return &SQLiteStore{
		db:     db,
		clock:  clock,
		tokens: tokens,
	}
}

func (s *SQLiteStore) CreateShare(filePath string, ttl *time.Duration) (*media.Share, error) {
	now := s.clock.Now().UTC()
	share := &media.Share{
		Token:     s.tokens.New(),
		FilePath:  filePath,
		CreatedAt: now,
	}
	if ttl != nil {
		expires := now.Add(*ttl)
		share.ExpiresAt = &expires
	}

	_, err := s.db.Exec(
		`INSERT INTO shares (token, file_path, created_at, expires_at, revoked_at)
		 VALUES (?, ?, ?, ?, NULL)`,
		share.Token, share.FilePath, share.CreatedAt, nullableTime(share.ExpiresAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting share: %w", err)
	}
	return share, nil
}

func (s *SQLiteStore) GetByToken(token string) (*media.Share, error) {
	row := s.db.QueryRow(
		`SELECT token, file_path, created_at, expires_at, revoked_at
		 FROM shares WHERE token = ?`,
		token,
	)
	share, err := scanShare(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding share by token: %w", err)
	}
	return share, nil
}

func (s *SQLiteStore) GetActiveByFilePath(filePath string) (*media.Share, error) {
	// Exact string match on the stored path; different spellings of one
	// file are separate keys. Expiry is evaluated against the current
	// clock on every call.
	row := s.db.QueryRow(
		`SELECT token, file_path, created_at, expires_at, revoked_at
		 FROM shares
		 WHERE file_path = ? AND revoked_at IS NULL
		   AND (expires_at IS NULL OR expires_at > ?)
		 ORDER BY created_at DESC
		 LIMIT 1`,
		filePath, s.clock.Now().UTC(),
	)
	share, err := scanShare(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No active share
		}
		return nil, fmt.Errorf("finding active share by path: %w", err)
	}
	return share, nil
}

func (s *SQLiteStore) Revoke(token string) (bool, error) {
	// The revoked_at IS NULL guard makes concurrent revokes on one token
	// yield exactly one state change.
	res, err := s.db.Exec(
		`UPDATE shares SET revoked_at = ? WHERE token = ? AND revoked_at IS NULL`,
		s.clock.Now().UTC(), token,
	)
	if err != nil {
		return false, fmt.Errorf("revoking share: %w", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoking share: %w", err)
	}
	return updated > 0, nil
}

func (s *SQLiteStore) ListShares(limit int) ([]*media.Share, error) {
	// A negative LIMIT means unlimited in SQLite; clamp so non-positive
	// limits always yield nothing.
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT token, file_path, created_at, expires_at, revoked_at
		 FROM shares ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing shares: %w", err)
	}
	defer rows.Close()

	var shares []*media.Share
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("listing shares: %w", err)
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing shares: %w", err)
	}
	return shares, nil
}

// Path returns the database file path (empty for wrapped connections).
func (s *SQLiteStore) Path() string { return s.path }

// CheckMigrations verifies the schema is up to date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShare(row scanner) (*media.Share, error) {
	var share media.Share
	var expires, revoked sql.NullTime
	if err := row.Scan(&share.Token, &share.FilePath, &share.CreatedAt, &expires, &revoked); err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time.UTC()
		share.ExpiresAt = &t
	}
	if revoked.Valid {
		t := revoked.Time.UTC()
		share.RevokedAt = &t
	}
	share.CreatedAt = share.CreatedAt.UTC()
	return &share, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Compile-time check that SQLiteStore implements media.ShareStore
var _ media.ShareStore = (*SQLiteStore)(nil)
