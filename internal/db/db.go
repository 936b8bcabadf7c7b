// Package db provides PostgreSQL access for draft snapshots and submissions.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS draft_snapshots (
	key        TEXT PRIMARY KEY,
	content    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS submissions (
	id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	applicant_id TEXT NOT NULL,
	content      JSONB NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS submissions_applicant_idx ON submissions (applicant_id);
`

// EnsureSchema creates the tables used by this package if they are missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SaveDraftSnapshot upserts the serialized draft map stored under key.
func (db *DB) SaveDraftSnapshot(ctx context.Context, key string, content []byte) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO draft_snapshots (key, content)
		 VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET content = $2, updated_at = NOW()`,
		key, content,
	)
	if err != nil {
		return fmt.Errorf("failed to save draft snapshot %s: %w", key, err)
	}
	return nil
}

// LoadDraftSnapshot returns the snapshot stored under key, or nil if there is none.
func (db *DB) LoadDraftSnapshot(ctx context.Context, key string) ([]byte, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM draft_snapshots WHERE key = $1`,
		key,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load draft snapshot %s: %w", key, err)
	}
	return content, nil
}

// GetDraftSnapshot returns the snapshot row stored under key, or nil if there is none.
func (db *DB) GetDraftSnapshot(ctx context.Context, key string) (*DraftSnapshot, error) {
	var s DraftSnapshot
	err := db.pool.QueryRow(ctx,
		`SELECT key, content, updated_at FROM draft_snapshots WHERE key = $1`,
		key,
	).Scan(&s.Key, &s.Content, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get draft snapshot %s: %w", key, err)
	}
	return &s, nil
}

// DeleteDraftSnapshot removes the snapshot stored under key. Missing keys are not an error.
func (db *DB) DeleteDraftSnapshot(ctx context.Context, key string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM draft_snapshots WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete draft snapshot %s: %w", key, err)
	}
	return nil
}

// ListDraftKeys returns snapshot keys starting with prefix, oldest update first.
func (db *DB) ListDraftKeys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT key FROM draft_snapshots WHERE key LIKE $1 || '%' ORDER BY updated_at ASC`,
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan draft key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
