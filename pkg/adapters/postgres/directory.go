// Package postgres provides a SQL-backed ports.Directory on pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	id      BIGINT PRIMARY KEY,
	name    TEXT NOT NULL,
	contact TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS records_name_idx ON records (name);
`

const querySQL = `
SELECT id, name, contact
FROM records
WHERE ($1 = '' OR name = $1)
  AND starts_with(name, $2)
ORDER BY id
LIMIT NULLIF($3::int, 0)
`

// Directory is a PostgreSQL implementation of ports.Directory.
type Directory struct {
	db *pgxpool.Pool
}

// NewDirectory creates a new Directory.
func NewDirectory(db *pgxpool.Pool) *Directory {
	return &Directory{db: db}
}

// Connect opens a pool from a connection string and verifies it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the records table if it does not exist.
func (d *Directory) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create records schema: %w", err)
	}
	return nil
}

// Seed upserts records in a single batch.
func (d *Directory) Seed(ctx context.Context, records ...domain.Record) error {
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`INSERT INTO records (id, name, contact) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, contact = EXCLUDED.contact`,
			r.ID, r.Name, r.Contact)
	}
	if err := d.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed records: %w", err)
	}
	return nil
}

// Query returns the matching records ordered by ID.
func (d *Directory) Query(ctx context.Context, c ports.Criteria) ([]domain.Record, error) {
	rows, err := d.db.Query(ctx, querySQL, c.Name, c.NamePrefix, c.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Record])
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return records, nil
}
