// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage persists the wallet registry and user settings as JSON
// blobs in a key/value Store and is the single place where the account
// password is checked before any wallet is unlocked.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/btcsuite/psbtsigner/keychain"
	"github.com/btcsuite/psbtsigner/psbterr"
	"github.com/btcsuite/psbtsigner/signer"
	"github.com/btcsuite/psbtsigner/vault"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/crypto/bcrypt"
)

// UserKey is the store key of the registry blob.
const UserKey = "user"

// UserStorage is the wallet registry of one account: its name, the hash of
// its password, the ordered list of wallets and the default wallet.
type UserStorage struct {
	mu    sync.RWMutex
	store Store

	name          string
	passwordHash  string
	wallets       []*vault.Wallet
	defaultWallet string
}

type userRecord struct {
	Name          string          `json:"name"`
	Password      string          `json:"password"`
	Wallets       []*vault.Wallet `json:"wallets"`
	DefaultWallet string          `json:"default_wallet,omitempty"`
}

// Read loads the registry from store. A missing blob yields an empty
// registry; any other store failure is returned.
func Read(ctx context.Context, store Store) (*UserStorage, error) {
	s := &UserStorage{store: store}

	blob, err := store.GetItem(ctx, UserKey)
	switch {
	case errors.Is(err, ErrItemNotFound):
		log.Debugf("No registry found, starting empty")
		return s, nil

	case err != nil:
		return nil, psbterr.New(psbterr.ErrStorage,
			"unable to read registry", err)
	}

	var rec userRecord
	if err := json.Unmarshal([]byte(blob), &rec); err != nil {
		return nil, psbterr.New(psbterr.ErrParse,
			"invalid registry blob", err)
	}

	if err := validateWallets(rec.Wallets); err != nil {
		return nil, err
	}

	s.name = rec.Name
	s.passwordHash = rec.Password
	s.wallets = rec.Wallets
	s.defaultWallet = rec.DefaultWallet

	log.Debugf("Loaded registry with %d wallet(s)", len(s.wallets))

	return s, nil
}

// validateWallets checks a decoded wallet list for null entries, missing
// names and duplicate names.
func validateWallets(wallets []*vault.Wallet) error {
	seen := fn.NewSet[string]()
	for i, w := range wallets {
		if w == nil {
			return psbterr.Errorf(psbterr.ErrParse,
				"registry wallet %d is null", i)
		}

		name := w.Name()
		switch {
		case name == "":
			return psbterr.Errorf(psbterr.ErrParse,
				"registry wallet %d has no name", i)

		case seen.Contains(name):
			return psbterr.Errorf(psbterr.ErrParse,
				"registry holds wallet %q twice", name)
		}
		seen.Add(name)
	}

	return nil
}

// Save writes the registry to the store.
func (s *UserStorage) Save(ctx context.Context) error {
	s.mu.RLock()
	rec := userRecord{
		Name:          s.name,
		Password:      s.passwordHash,
		Wallets:       s.wallets,
		DefaultWallet: s.defaultWallet,
	}
	if rec.Wallets == nil {
		rec.Wallets = []*vault.Wallet{}
	}
	blob, err := json.Marshal(rec)
	s.mu.RUnlock()

	if err != nil {
		return psbterr.New(psbterr.ErrStorage,
			"unable to encode registry", err)
	}

	if err := s.store.SetItem(ctx, UserKey, string(blob)); err != nil {
		return psbterr.New(psbterr.ErrStorage,
			"unable to write registry", err)
	}

	return nil
}

// Name returns the account name.
func (s *UserStorage) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.name
}

// HasPassword reports whether the account has been created.
func (s *UserStorage) HasPassword() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.passwordHash != ""
}

// CreateAccount sets the account name and password. It fails if the account
// already exists or the two passwords differ.
func (s *UserStorage) CreateAccount(name, password, confirm string) error {
	if name == "" {
		return psbterr.Errorf(psbterr.ErrValidation,
			"account name is required")
	}

	if password != confirm {
		return psbterr.Errorf(psbterr.ErrValidation,
			"passwords do not match")
	}

	if s.HasPassword() {
		return psbterr.Errorf(psbterr.ErrValidation,
			"account already exists")
	}

	if err := s.SetPassword(password); err != nil {
		return err
	}

	s.mu.Lock()
	s.name = name
	s.mu.Unlock()

	return nil
}

// SetPassword replaces the account password. Only its bcrypt hash is kept.
//
// NOTE: wallets keep the secret encrypted under the password that was in
// force when they were imported.
func (s *UserStorage) SetPassword(password string) error {
	if password == "" {
		return psbterr.Errorf(psbterr.ErrValidation,
			"password is required")
	}

	hash, err := bcrypt.GenerateFromPassword(
		[]byte(password), bcrypt.DefaultCost,
	)
	if err != nil {
		return psbterr.New(psbterr.ErrKeyDerivation,
			"unable to hash password", err)
	}

	s.mu.Lock()
	s.passwordHash = string(hash)
	s.mu.Unlock()

	return nil
}

// VerifyPassword checks password against the stored hash. A mismatch is
// reported as the generic decryption error.
func (s *UserStorage) VerifyPassword(password string) error {
	s.mu.RLock()
	hash := s.passwordHash
	s.mu.RUnlock()

	if hash == "" {
		return psbterr.Errorf(psbterr.ErrValidation,
			"account has no password")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		return psbterr.Decryption()
	}

	return nil
}

// WalletNames returns the wallet names in registry order.
func (s *UserStorage) WalletNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.wallets))
	for _, w := range s.wallets {
		names = append(names, w.Name())
	}

	return names
}

// findLocked returns the index of the named wallet or -1. The caller must
// hold the lock.
func (s *UserStorage) findLocked(name string) int {
	for i, w := range s.wallets {
		if w.Name() == name {
			return i
		}
	}

	return -1
}

// Wallet returns the named wallet. An empty name selects the default
// wallet.
func (s *UserStorage) Wallet(name string) (*vault.Wallet, error) {
	if name == "" {
		var err error
		name, err = s.DefaultWallet()
		if err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.findLocked(name)
	if idx < 0 {
		return nil, psbterr.Errorf(psbterr.ErrWalletNotFound,
			"wallet %q not found", name)
	}

	return s.wallets[idx], nil
}

// AddWallet appends w to the registry. Its name must be non-empty and
// unique.
func (s *UserStorage) AddWallet(w *vault.Wallet) error {
	name := w.Name()
	if name == "" {
		return psbterr.Errorf(psbterr.ErrValidation,
			"wallet name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(name) >= 0 {
		return psbterr.Errorf(psbterr.ErrValidation,
			"wallet %q already exists", name)
	}

	s.wallets = append(s.wallets, w)
	log.Infof("Added wallet %q", name)

	return nil
}

// RemoveWallet deletes the named wallet. If it was the default wallet the
// default falls back to the first remaining wallet.
func (s *UserStorage) RemoveWallet(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findLocked(name)
	if idx < 0 {
		return psbterr.Errorf(psbterr.ErrWalletNotFound,
			"wallet %q not found", name)
	}

	s.wallets = append(s.wallets[:idx], s.wallets[idx+1:]...)
	if s.defaultWallet == name {
		s.defaultWallet = ""
	}
	log.Infof("Removed wallet %q", name)

	return nil
}

// DefaultWallet returns the name of the default wallet, falling back to the
// first wallet when none has been chosen.
func (s *UserStorage) DefaultWallet() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.defaultWallet != "" && s.findLocked(s.defaultWallet) >= 0 {
		return s.defaultWallet, nil
	}

	if len(s.wallets) == 0 {
		return "", psbterr.Errorf(psbterr.ErrWalletNotFound,
			"no wallets")
	}

	return s.wallets[0].Name(), nil
}

// SetDefaultWallet selects the default wallet.
func (s *UserStorage) SetDefaultWallet(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(name) < 0 {
		return psbterr.Errorf(psbterr.ErrWalletNotFound,
			"wallet %q not found", name)
	}
	s.defaultWallet = name

	return nil
}

// checkNewName makes sure a wallet called name could be added.
func (s *UserStorage) checkNewName(name string) error {
	if name == "" {
		return psbterr.Errorf(psbterr.ErrValidation,
			"wallet name is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.findLocked(name) >= 0 {
		return psbterr.Errorf(psbterr.ErrValidation,
			"wallet %q already exists", name)
	}

	return nil
}

// ImportSeed verifies the account password and adds a wallet holding the
// mnemonic encrypted under it.
func (s *UserStorage) ImportSeed(name, seedWords,
	password string) (*vault.Wallet, error) {

	if err := s.VerifyPassword(password); err != nil {
		return nil, err
	}

	if err := s.checkNewName(name); err != nil {
		return nil, err
	}

	w, err := vault.NewFromSeed(name, seedWords, password)
	if err != nil {
		return nil, err
	}

	return w, s.AddWallet(w)
}

// ImportExtendedKey verifies the account password and adds a wallet holding
// the extended private key encrypted under it.
func (s *UserStorage) ImportExtendedKey(name, xprv, derivation,
	password string) (*vault.Wallet, error) {

	if err := s.VerifyPassword(password); err != nil {
		return nil, err
	}

	if err := s.checkNewName(name); err != nil {
		return nil, err
	}

	w, err := vault.NewFromExtendedKey(name, xprv, derivation, password)
	if err != nil {
		return nil, err
	}

	return w, s.AddWallet(w)
}

// authorize verifies the account password and looks up the wallet.
func (s *UserStorage) authorize(name, password string) (*vault.Wallet,
	error) {

	if err := s.VerifyPassword(password); err != nil {
		return nil, err
	}

	return s.Wallet(name)
}

// SignPsbt verifies the account password and signs psbtB64 with the named
// wallet.
func (s *UserStorage) SignPsbt(name, psbtB64, password string,
	net keychain.Network) (string, error) {

	w, err := s.authorize(name, password)
	if err != nil {
		return "", err
	}

	return signer.DecodePsbtAndSign(psbtB64, w, password, net)
}

// SignPsbts verifies the account password once and signs every packet with
// the named wallet. The signed packets are returned in input order.
func (s *UserStorage) SignPsbts(ctx context.Context, name string,
	psbts []string, password string, net keychain.Network) ([]string,
	error) {

	w, err := s.authorize(name, password)
	if err != nil {
		return nil, err
	}

	jobs := make([]signer.Job, len(psbts))
	for i, p := range psbts {
		jobs[i] = signer.Job{Wallet: w, Password: password, Psbt: p}
	}

	return signer.SignBatch(ctx, jobs, net)
}

// RevealSecret verifies the account password and returns the named
// wallet's plaintext secret.
func (s *UserStorage) RevealSecret(name, password string) (string, error) {
	w, err := s.authorize(name, password)
	if err != nil {
		return "", err
	}

	return w.RevealSecret(password)
}

// ExportXPub verifies the account password and returns the master
// fingerprint and the xpub at the wallet's derivation extended by suffix.
// The returned path is the key origin of the xpub, so an account xprv
// wallet with no suffix yields the neutered imported key.
func (s *UserStorage) ExportXPub(name string, suffix keychain.Path,
	password string, net keychain.Network) (keychain.Fingerprint,
	keychain.Path, string, error) {

	w, err := s.authorize(name, password)
	if err != nil {
		return 0, nil, "", err
	}

	full := w.Derivation().Child(suffix...)
	fp, xpub, err := w.DeriveOriginXPub(full, password, net)
	if err != nil {
		return 0, nil, "", err
	}

	return fp, full, xpub, nil
}
