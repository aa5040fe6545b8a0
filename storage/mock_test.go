// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// mockStore is a mock implementation of the Store interface.
type mockStore struct {
	mock.Mock
}

// A compile-time assertion to ensure mockStore implements Store.
var _ Store = (*mockStore)(nil)

// GetItem implements Store.
func (m *mockStore) GetItem(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// SetItem implements Store.
func (m *mockStore) SetItem(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}
