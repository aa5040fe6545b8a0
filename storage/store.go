// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrItemNotFound is returned by a Store when no value exists for a key.
var ErrItemNotFound = errors.New("item not found")

// Store is a string key/value store holding the serialized registry and
// settings blobs.
type Store interface {
	// GetItem returns the value stored under key, or ErrItemNotFound.
	GetItem(ctx context.Context, key string) (string, error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key, value string) error
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu    sync.RWMutex
	items map[string]string
}

// A compile-time assertion to ensure MemStore implements Store.
var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{items: make(map[string]string)}
}

// GetItem implements Store.
func (m *MemStore) GetItem(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.items[key]
	if !ok {
		return "", ErrItemNotFound
	}

	return value, nil
}

// SetItem implements Store.
func (m *MemStore) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = value

	return nil
}
