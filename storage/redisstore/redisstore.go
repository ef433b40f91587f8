// Package redisstore keeps client session entries in Redis so several
// processes of one client can share a session.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-auth-client/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by a Store
const DefaultPrefix = "authclient:"

// Store implements the session Storage contract on a Redis client.
type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option customizes a Store.
type Option func(*Store)

// WithPrefix overrides DefaultPrefix
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires entries ttl after their last write. Zero keeps them
// until deleted.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// New returns a Store using client
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Prefix returns the configured key prefix
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := storage.ValidateKeys(key); err != nil {
		return "", false, err
	}

	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, storage.ReadError(err, key)
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := storage.ValidateKeys(key); err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return storage.WriteError(err, "set")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if err := storage.ValidateKeys(keys...); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.prefix + key
	}

	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return storage.WriteError(err, "delete")
	}
	return nil
}
