package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSlot persists a named blob in a local SQLite file. The driver is
// pure Go, so the default on-disk backend needs no cgo and no external
// service.
type SQLiteSlot struct {
	db   *sql.DB
	name string
}

// NewSQLiteSlot opens (creating if needed) the database at path and
// ensures the slots table exists. Multiple slots may share one file under
// different names.
func NewSQLiteSlot(ctx context.Context, path, name string) (*SQLiteSlot, error) {
	// Slots sharing a file open separate handles, so writes from another
	// handle must wait for the lock instead of failing busy.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS slots (
			name       TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("create slots table: %w", err)
	}

	return &SQLiteSlot{db: db, name: name}, nil
}

func (s *SQLiteSlot) Load(ctx context.Context) ([]byte, error) {
	query := `SELECT data FROM slots WHERE name = ?`

	var data []byte

	err := s.db.QueryRowContext(ctx, query, s.name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return data, nil
}

func (s *SQLiteSlot) Store(ctx context.Context, data []byte) error {
	query := `
		INSERT INTO slots (name, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query, s.name, data, time.Now().UTC().Format(time.RFC3339Nano))

	return err
}

func (s *SQLiteSlot) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Shutdown closes the underlying database.
func (s *SQLiteSlot) Shutdown() error {
	return s.db.Close()
}
