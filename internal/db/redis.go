// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import (
	"context"
	"errors"

	"github.com/btcsuite/psbtsigner/storage"
	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces every item key.
const redisKeyPrefix = "psbtsigner:"

// RedisConfig holds the connection settings of the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore is the Redis implementation of storage.Store.
type RedisStore struct {
	client *redis.Client
}

// A compile-time assertion to ensure RedisStore implements storage.Store.
var _ storage.Store = (*RedisStore)(nil)

// OpenRedisStore connects to Redis and checks the connection.
func OpenRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore,
	error) {

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, newError(ErrDatabase, "unable to reach redis", err)
	}

	return &RedisStore{client: client}, nil
}

// GetItem implements storage.Store.
func (s *RedisStore) GetItem(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", storage.ErrItemNotFound

	case err != nil:
		return "", newError(ErrDatabase, "redis get", err)
	}

	return value, nil
}

// SetItem implements storage.Store. Items never expire.
func (s *RedisStore) SetItem(ctx context.Context, key, value string) error {
	err := s.client.Set(ctx, redisKeyPrefix+key, value, 0).Err()
	if err != nil {
		return newError(ErrDatabase, "redis set", err)
	}

	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
