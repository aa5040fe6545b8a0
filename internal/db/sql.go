// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/btcsuite/psbtsigner/storage"
)

// sqlQueries holds the dialect specific statements of a SQL backend.
type sqlQueries struct {
	get string
	set string
}

// sqlStore is the database/sql implementation of storage.Store shared by the
// SQLite and PostgreSQL backends.
type sqlStore struct {
	db      *sql.DB
	queries sqlQueries
}

// GetItem implements storage.Store.
func (s *sqlStore) GetItem(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.queries.get, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", storage.ErrItemNotFound

	case err != nil:
		return "", newError(ErrDatabase, "select item", err)
	}

	return value, nil
}

// SetItem implements storage.Store.
func (s *sqlStore) SetItem(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.queries.set, key, value)
	if err != nil {
		return newError(ErrDatabase, "upsert item", err)
	}

	return nil
}

// Close closes the database handle.
func (s *sqlStore) Close() error {
	return s.db.Close()
}
