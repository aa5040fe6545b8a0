// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/btcsuite/psbtsigner/storage"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver.
)

var postgresQueries = sqlQueries{
	get: "SELECT item_value FROM items WHERE item_key = $1",
	set: "INSERT INTO items (item_key, item_value) VALUES ($1, $2) " +
		"ON CONFLICT (item_key) DO UPDATE SET " +
		"item_value = EXCLUDED.item_value, updated_at = NOW()",
}

// PostgresStore is the PostgreSQL implementation of storage.Store.
type PostgresStore struct {
	sqlStore
}

// A compile-time assertion to ensure PostgresStore implements storage.Store.
var _ storage.Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store on an opened PostgreSQL database. The
// schema must already be migrated.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}

	return &PostgresStore{
		sqlStore: sqlStore{db: db, queries: postgresQueries},
	}, nil
}

// OpenPostgresStore connects to the database at dsn and brings its schema
// up to date.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore,
	error) {

	dbConn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open postgres database: %w",
			err)
	}

	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, newError(ErrDatabase, "unable to reach postgres", err)
	}

	if err := ApplyPostgresMigrations(dbConn); err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	return NewPostgresStore(dbConn)
}
