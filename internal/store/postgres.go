package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSlot persists a named blob in a single PostgreSQL row. The pool
// is managed by the caller.
type PostgresSlot struct {
	pool *pgxpool.Pool
	name string
}

// NewPostgresSlot ensures the slots table exists and returns a slot bound
// to the given name.
func NewPostgresSlot(ctx context.Context, pool *pgxpool.Pool, name string) (*PostgresSlot, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS slots (
			name       TEXT PRIMARY KEY,
			data       BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`

	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("create slots table: %w", err)
	}

	return &PostgresSlot{pool: pool, name: name}, nil
}

func (p *PostgresSlot) Load(ctx context.Context) ([]byte, error) {
	query := `SELECT data FROM slots WHERE name = $1`

	var data []byte

	err := p.pool.QueryRow(ctx, query, p.name).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return data, nil
}

func (p *PostgresSlot) Store(ctx context.Context, data []byte) error {
	query := `
		INSERT INTO slots (name, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`

	_, err := p.pool.Exec(ctx, query, p.name, data)

	return err
}

func (p *PostgresSlot) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
