package drafts

import (
	"context"

	"github.com/jonathan/careers-portal/internal/db"
)

// PostgresBackend stores snapshots in the draft_snapshots table.
type PostgresBackend struct {
	db *db.DB
}

// NewPostgresBackend wraps an open database.
func NewPostgresBackend(database *db.DB) *PostgresBackend {
	return &PostgresBackend{db: database}
}

// Load implements Backend.
func (p *PostgresBackend) Load(ctx context.Context, key string) ([]byte, error) {
	return p.db.LoadDraftSnapshot(ctx, key)
}

// Save implements Backend.
func (p *PostgresBackend) Save(ctx context.Context, key string, data []byte) error {
	return p.db.SaveDraftSnapshot(ctx, key, data)
}

// Delete implements Backend.
func (p *PostgresBackend) Delete(ctx context.Context, key string) error {
	return p.db.DeleteDraftSnapshot(ctx, key)
}
