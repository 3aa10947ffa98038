// Package redisstore provides a Redis-backed record store.
//
// Each record is a plain string value under prefix + hex(key). Admission uses
// SET NX, which Redis executes atomically.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/secfit/ip-protector/internal/fingerprint"
	"github.com/secfit/ip-protector/internal/store"
)

// DefaultPrefix namespaces record keys.
const DefaultPrefix = "ipp:record:"

// Store is a Redis implementation of store.Store.
type Store struct {
	client *redis.Client
	prefix string
}

var _ store.Store = (*Store)(nil)

// Open parses url, connects and pings the server.
func Open(ctx context.Context, url, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return New(client, prefix), nil
}

// New wraps an existing client. An empty prefix selects DefaultPrefix.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) redisKey(key fingerprint.Key) string {
	return s.prefix + key.String()
}

// CreateIfAbsent sets value at key with NX and no expiry.
func (s *Store) CreateIfAbsent(ctx context.Context, key fingerprint.Key, value []byte) error {
	created, err := s.client.SetNX(ctx, s.redisKey(key), value, 0).Result()
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	if !created {
		return store.ErrAlreadyExists
	}
	return nil
}

// Get returns the value stored at key.
func (s *Store) Get(ctx context.Context, key fingerprint.Key) ([]byte, error) {
	value, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return value, nil
}

// Health checks if the Redis connection is healthy.
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
