package database

// Schema is the complete current schema, kept in sync with the migration
// files. Tests apply it directly to in-memory databases instead of
// running migrations.
const Schema = `
CREATE TABLE shares (
    token TEXT PRIMARY KEY,
    file_path TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP,
    revoked_at TIMESTAMP
);

CREATE INDEX idx_shares_file_path ON shares (file_path);
`
