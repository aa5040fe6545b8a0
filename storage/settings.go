// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/btcsuite/psbtsigner/keychain"
	"github.com/btcsuite/psbtsigner/psbterr"
)

// SettingsKey is the store key of the settings blob.
const SettingsKey = "settings"

// SettingsStorage holds user preferences that are not secret.
type SettingsStorage struct {
	mu      sync.RWMutex
	store   Store
	network keychain.Network
}

type settingsRecord struct {
	Network keychain.Network `json:"network"`
}

// ReadSettings loads the settings from store. Missing settings yield the
// defaults.
func ReadSettings(ctx context.Context, store Store) (*SettingsStorage,
	error) {

	s := &SettingsStorage{store: store, network: keychain.Bitcoin}

	blob, err := store.GetItem(ctx, SettingsKey)
	switch {
	case errors.Is(err, ErrItemNotFound):
		return s, nil

	case err != nil:
		return nil, psbterr.New(psbterr.ErrStorage,
			"unable to read settings", err)
	}

	var rec settingsRecord
	if err := json.Unmarshal([]byte(blob), &rec); err != nil {
		return nil, psbterr.New(psbterr.ErrParse,
			"invalid settings blob", err)
	}
	s.network = rec.Network

	return s, nil
}

// Network returns the selected network.
func (s *SettingsStorage) Network() keychain.Network {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.network
}

// SetNetwork selects a network. Call Save to persist it.
func (s *SettingsStorage) SetNetwork(net keychain.Network) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.network = net
}

// Save writes the settings to the store.
func (s *SettingsStorage) Save(ctx context.Context) error {
	s.mu.RLock()
	blob, err := json.Marshal(settingsRecord{Network: s.network})
	s.mu.RUnlock()

	if err != nil {
		return psbterr.New(psbterr.ErrStorage,
			"unable to encode settings", err)
	}

	if err := s.store.SetItem(ctx, SettingsKey, string(blob)); err != nil {
		return psbterr.New(psbterr.ErrStorage,
			"unable to write settings", err)
	}

	return nil
}
