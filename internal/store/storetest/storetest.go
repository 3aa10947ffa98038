// Package storetest provides a conformance suite for store.Store
// implementations. Every backend runs it from its own tests.
package storetest

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secfit/ip-protector/internal/fingerprint"
	"github.com/secfit/ip-protector/internal/store"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// KeyFor returns a deterministic test key for name.
func KeyFor(name string) fingerprint.Key {
	return fingerprint.Key(sha256.Sum256([]byte(name)))
}

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CreateThenGet", testCreateThenGet},
		{"DuplicateRejected", testDuplicateRejected},
		{"GetMissing", testGetMissing},
		{"ValueIsolation", testValueIsolation},
		{"ConcurrentCreate", testConcurrentCreate},
		{"DistinctKeys", testDistinctKeys},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func testCreateThenGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := KeyFor("create-then-get")

	require.NoError(t, s.CreateIfAbsent(ctx, key, []byte("first")))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func testDuplicateRejected(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := KeyFor("duplicate")

	require.NoError(t, s.CreateIfAbsent(ctx, key, []byte("first")))

	err := s.CreateIfAbsent(ctx, key, []byte("second"))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got, "existing value must not be overwritten")
}

func testGetMissing(t *testing.T, s store.Store) {
	_, err := s.Get(context.Background(), KeyFor("missing"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testValueIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := KeyFor("isolation")
	value := []byte("original")

	require.NoError(t, s.CreateIfAbsent(ctx, key, value))
	value[0] = 'X'

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func testConcurrentCreate(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := KeyFor("concurrent")

	const workers = 16
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
		start     = make(chan struct{})
		errs      = make(chan error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			err := s.CreateIfAbsent(ctx, key, []byte(fmt.Sprintf("writer-%d", i)))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, store.ErrAlreadyExists):
				conflicts.Add(1)
			default:
				errs <- err
			}
		}(i)
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	assert.Equal(t, int32(1), successes.Load(), "exactly one writer must win")
	assert.Equal(t, int32(workers-1), conflicts.Load())

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Regexp(t, `^writer-\d+$`, string(got))
}

func testDistinctKeys(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		key := KeyFor(fmt.Sprintf("distinct-%d", i))
		require.NoError(t, s.CreateIfAbsent(ctx, key, []byte(fmt.Sprintf("v%d", i))))
	}
	for i := 0; i < 10; i++ {
		got, err := s.Get(ctx, KeyFor(fmt.Sprintf("distinct-%d", i)))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("v%d", i), string(got))
	}
}
