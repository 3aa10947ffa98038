// Package postgres provides a PostgreSQL-backed record store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/secfit/ip-protector/internal/fingerprint"
	"github.com/secfit/ip-protector/internal/store"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS ipp_records (
	key       BYTEA       PRIMARY KEY CHECK (octet_length(key) = 32),
	value     BYTEA       NOT NULL,
	stored_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store is a PostgreSQL implementation of store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to the database at dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool. Call Migrate before use on a fresh
// database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the records table if it doesn't exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// CreateIfAbsent inserts value at key unless the key is already present.
func (s *Store) CreateIfAbsent(ctx context.Context, key fingerprint.Key, value []byte) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO ipp_records (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, key[:], value)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create record: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

// Get returns the value stored at key.
func (s *Store) Get(ctx context.Context, key fingerprint.Key) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM ipp_records WHERE key = $1`, key[:]).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return value, nil
}

// Health pings the database.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
