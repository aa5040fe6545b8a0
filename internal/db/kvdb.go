// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package db provides the persistent storage.Store backends: a walletdb
// (bbolt) file, SQLite and PostgreSQL databases, and Redis.
package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcwallet/walletdb"
	_ "github.com/btcsuite/btcwallet/walletdb/bdb" // Register bdb driver.
	"github.com/btcsuite/psbtsigner/storage"
)

const (
	// kvdbDriver is the walletdb driver name used for the file backend.
	kvdbDriver = "bdb"

	// KVDBFilename is the name of the walletdb file inside the data
	// directory.
	KVDBFilename = "psbtsigner.db"
)

// signerBucketKey is the top-level bucket holding every item.
var signerBucketKey = []byte("psbtsigner")

// KVStore is the walletdb implementation of storage.Store.
type KVStore struct {
	db walletdb.DB
}

// A compile-time assertion to ensure KVStore implements storage.Store.
var _ storage.Store = (*KVStore)(nil)

// NewKVStore wraps an opened walletdb database, creating the signer bucket
// if needed.
func NewKVStore(db walletdb.DB) (*KVStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}

	err := walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		_, err := tx.CreateTopLevelBucket(signerBucketKey)
		return err
	})
	if err != nil {
		return nil, newError(ErrDatabase, "unable to create bucket", err)
	}

	return &KVStore{db: db}, nil
}

// OpenKVStore opens the walletdb file in dir, creating it if it does not
// exist yet.
func OpenKVStore(dir string, timeout time.Duration) (*KVStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, KVDBFilename)

	db, err := walletdb.Open(kvdbDriver, dbPath, true, timeout, false)
	if errors.Is(err, walletdb.ErrDbDoesNotExist) {
		log.Infof("Creating database %v", dbPath)

		db, err = walletdb.Create(kvdbDriver, dbPath, true, timeout,
			false)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open bdb instance: %w", err)
	}

	store, err := NewKVStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// GetItem implements storage.Store.
func (s *KVStore) GetItem(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var value []byte
	err := walletdb.View(s.db, func(tx walletdb.ReadTx) error {
		bucket := tx.ReadBucket(signerBucketKey)
		if bucket == nil {
			return errNoBucket
		}

		v := bucket.Get([]byte(key))
		if v == nil {
			return storage.ErrItemNotFound
		}

		// The slice is only valid inside the transaction.
		value = append([]byte(nil), v...)

		return nil
	})
	if err != nil {
		return "", err
	}

	return string(value), nil
}

// SetItem implements storage.Store.
func (s *KVStore) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return walletdb.Update(s.db, func(tx walletdb.ReadWriteTx) error {
		bucket := tx.ReadWriteBucket(signerBucketKey)
		if bucket == nil {
			return errNoBucket
		}

		return bucket.Put([]byte(key), []byte(value))
	})
}

// Close closes the underlying database.
func (s *KVStore) Close() error {
	return s.db.Close()
}
