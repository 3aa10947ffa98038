package store

import (
	"context"
	"sync"

	"github.com/secfit/ip-protector/internal/fingerprint"
)

// MemStore is a thread-safe in-memory Store.
// Values are copied on write and on read so callers cannot mutate stored
// records.
type MemStore struct {
	mu      sync.RWMutex
	records map[fingerprint.Key][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[fingerprint.Key][]byte)}
}

func (m *MemStore) CreateIfAbsent(ctx context.Context, key fingerprint.Key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[key]; ok {
		return ErrAlreadyExists
	}
	m.records[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemStore) Get(ctx context.Context, key fingerprint.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Len returns the number of stored records.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemStore) Close() error {
	return nil
}
