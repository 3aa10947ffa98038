// Package store defines the record store contract used by the registry and
// provides an in-memory implementation.
//
// A store maps derived keys to encoded records. It supports exactly two
// operations: an atomic create-if-absent and a point read. There is no
// update and no delete; once a key is occupied it stays occupied.
//
// # Atomicity
//
// CreateIfAbsent MUST be atomic per key. Under concurrent calls for the same
// key exactly one succeeds and every other call returns ErrAlreadyExists.
// A reader never observes a partially written value.
//
// Backends:
//   - MemStore (this package): process-local, for tests and ephemeral use
//   - sqlite: INSERT ... ON CONFLICT DO NOTHING
//   - postgres: INSERT ... ON CONFLICT DO NOTHING
//   - redisstore: SET NX
package store

import (
	"context"
	"errors"

	"github.com/secfit/ip-protector/internal/fingerprint"
)

var (
	// ErrAlreadyExists is returned by CreateIfAbsent when the key is occupied.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrNotFound is returned by Get when no record exists at the key.
	ErrNotFound = errors.New("record not found")
)

// Store is the record store contract.
type Store interface {
	// CreateIfAbsent stores value at key only if the key is unoccupied.
	// Returns ErrAlreadyExists otherwise, leaving the existing value untouched.
	CreateIfAbsent(ctx context.Context, key fingerprint.Key, value []byte) error

	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key fingerprint.Key) ([]byte, error)

	// Close releases backend resources.
	Close() error
}
