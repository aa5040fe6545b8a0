// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/psbtsigner/storage"
)

// Names of the supported backends.
const (
	BackendBolt     = "bdb"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// DefaultTimeout is the walletdb lock timeout used when none is configured.
const DefaultTimeout = 10 * time.Second

// Backends lists the names accepted by Open.
var Backends = []string{
	BackendBolt, BackendSQLite, BackendPostgres, BackendRedis,
	BackendMemory,
}

// Config selects and configures a backend.
type Config struct {
	// Backend is one of the Backend* names.
	Backend string

	// DataDir holds the bdb and sqlite files.
	DataDir string

	// Timeout bounds how long the bdb backend waits for the file lock.
	Timeout time.Duration

	// PostgresDSN is the connection string of the postgres backend.
	PostgresDSN string

	// Redis configures the redis backend.
	Redis RedisConfig
}

// Backend is an opened storage.Store that must be closed after use.
type Backend interface {
	storage.Store

	// Close releases the backend's resources.
	Close() error
}

// memBackend adapts a MemStore to the Backend interface.
type memBackend struct {
	*storage.MemStore
}

// Close implements Backend.
func (memBackend) Close() error {
	return nil
}

// Open opens the backend named in cfg.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	log.Debugf("Opening %s backend", cfg.Backend)

	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case BackendBolt:
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		backend, err = asBackend(OpenKVStore(cfg.DataDir, timeout))

	case BackendSQLite:
		backend, err = asBackend(OpenSQLiteStore(cfg.DataDir))

	case BackendPostgres:
		backend, err = asBackend(OpenPostgresStore(ctx, cfg.PostgresDSN))

	case BackendRedis:
		backend, err = asBackend(OpenRedisStore(ctx, cfg.Redis))

	case BackendMemory:
		backend = memBackend{storage.NewMemStore()}

	default:
		err = fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return backend, nil
}

// asBackend converts the result of a typed constructor so that a failed
// open yields a nil interface.
func asBackend[T Backend](b T, err error) (Backend, error) {
	if err != nil {
		return nil, err
	}

	return b, nil
}
