package registry

import (
	"context"
	"testing"

	"github.com/secfit/ip-protector/internal/fingerprint"
	"github.com/secfit/ip-protector/internal/store"
)

var (
	authorA = identity(0xA1)
	authorB = identity(0xB2)
)

func identity(b byte) fingerprint.Identity {
	var id fingerprint.Identity
	for i := range id {
		id[i] = b
	}
	return id
}

func newTestService(t *testing.T) (*Service, *store.MemStore, *ManualClock) {
	t.Helper()
	st := store.NewMemStore()
	clock := NewManualClock(1_700_000_000)
	return New(st, WithClock(clock)), st, clock
}

// failingStore returns err from every operation.
type failingStore struct {
	err error
}

func (f failingStore) CreateIfAbsent(context.Context, fingerprint.Key, []byte) error {
	return f.err
}

func (f failingStore) Get(context.Context, fingerprint.Key) ([]byte, error) {
	return nil, f.err
}

func (f failingStore) Close() error { return nil }

// countingStore records how many calls reach the backing store.
type countingStore struct {
	store.Store
	creates int
	gets    int
}

func (c *countingStore) CreateIfAbsent(ctx context.Context, key fingerprint.Key, value []byte) error {
	c.creates++
	return c.Store.CreateIfAbsent(ctx, key, value)
}

func (c *countingStore) Get(ctx context.Context, key fingerprint.Key) ([]byte, error) {
	c.gets++
	return c.Store.Get(ctx, key)
}
