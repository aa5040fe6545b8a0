// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/psbtsigner/storage"
	_ "modernc.org/sqlite" // Register sqlite driver.
)

// SQLiteFilename is the name of the SQLite file inside the data directory.
const SQLiteFilename = "psbtsigner.sqlite"

var sqliteQueries = sqlQueries{
	get: "SELECT item_value FROM items WHERE item_key = ?",
	set: "INSERT INTO items (item_key, item_value) VALUES (?, ?) " +
		"ON CONFLICT (item_key) DO UPDATE SET " +
		"item_value = excluded.item_value, " +
		"updated_at = CURRENT_TIMESTAMP",
}

// SQLiteStore is the SQLite implementation of storage.Store.
type SQLiteStore struct {
	sqlStore
}

// A compile-time assertion to ensure SQLiteStore implements storage.Store.
var _ storage.Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a store on an opened SQLite database. The schema
// must already be migrated.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}

	return &SQLiteStore{
		sqlStore: sqlStore{db: db, queries: sqliteQueries},
	}, nil
}

// sqliteDSN returns the connection string for the database file at path.
func sqliteDSN(path string) string {
	// Foreign keys, WAL journaling, immediate transaction locking and a
	// five second busy timeout.
	return path + "?_pragma=foreign_keys=on" +
		"&_pragma=journal_mode=WAL" +
		"&_txlock=immediate" +
		"&_pragma=busy_timeout=5000"
}

// OpenSQLiteStore opens, or creates, the SQLite database in dir and brings
// its schema up to date.
func OpenSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, SQLiteFilename)
	dbConn, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}

	if err := ApplySQLiteMigrations(dbConn); err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	return NewSQLiteStore(dbConn)
}
