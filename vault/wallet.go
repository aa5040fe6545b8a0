// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package vault holds a wallet's root secret encrypted at rest and unlocks
// it into a BIP32 master key on demand.
package vault

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/psbtsigner/crypter"
	"github.com/btcsuite/psbtsigner/internal/zero"
	"github.com/btcsuite/psbtsigner/keychain"
	"github.com/btcsuite/psbtsigner/psbterr"
	"github.com/tyler-smith/go-bip39"
)

// Wallet is a named container for one encrypted root secret. The salt and
// nonce are generated once when the secret is first set and never change,
// and the secret itself can only be set once, so a key/nonce pair never
// seals two different plaintexts.
//
// A Wallet is safe for concurrent use. Unlocking holds the wallet's lock
// until the decrypted material has been wiped.
type Wallet struct {
	mu sync.Mutex

	name       string
	salt       *crypter.Salt
	nonce      *crypter.Nonce
	secret     *EncryptedSecret
	derivation keychain.Path
}

// NewFromSeed creates a wallet holding the given mnemonic encrypted under
// password. The wallet's derivation is the root.
func NewFromSeed(name, seedWords, password string) (*Wallet, error) {
	w := &Wallet{}
	if err := w.SetSeed(name, seedWords, password); err != nil {
		return nil, err
	}

	return w, nil
}

// NewFromExtendedKey creates a wallet holding an extended private key that
// sits at the given derivation path.
func NewFromExtendedKey(name, xprv, derivation, password string) (*Wallet,
	error) {

	w := &Wallet{}
	if err := w.SetExtendedKey(name, xprv, derivation, password); err != nil {
		return nil, err
	}

	return w, nil
}

// Name returns the wallet name.
func (w *Wallet) Name() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.name
}

// Derivation returns the path at which the wallet's root key sits.
func (w *Wallet) Derivation() keychain.Path {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.derivation.Child()
}

// Kind returns the kind of secret held, or SecretNone.
func (w *Wallet) Kind() SecretKind {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.secret == nil {
		return SecretNone
	}

	return w.secret.Kind
}

// HasSecret reports whether a secret has been set.
func (w *Wallet) HasSecret() bool {
	return w.Kind() != SecretNone
}

// SetSeed validates and encrypts a BIP39 mnemonic as the wallet's secret.
func (w *Wallet) SetSeed(name, seedWords, password string) error {
	mnemonic := normalizeMnemonic(seedWords)
	if !bip39.IsMnemonicValid(mnemonic) {
		return psbterr.Errorf(psbterr.ErrParse, "invalid mnemonic")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	return w.setSecret(
		name, SecretSeed, []byte(mnemonic), keychain.RootPath, password,
	)
}

// SetExtendedKey validates and encrypts an extended private key as the
// wallet's secret.
func (w *Wallet) SetExtendedKey(name, xprv, derivation,
	password string) error {

	key, err := parseExtendedPrivateKey(xprv)
	if err != nil {
		return err
	}
	key.Zero()

	path, err := keychain.ParsePath(derivation)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	return w.setSecret(
		name, SecretExtendedKey, []byte(strings.TrimSpace(xprv)), path,
		password,
	)
}

// setSecret seals plaintext and stores it. The caller must hold the lock.
func (w *Wallet) setSecret(name string, kind SecretKind, plaintext []byte,
	derivation keychain.Path, password string) error {

	defer zero.Bytes(plaintext)

	if name == "" {
		return psbterr.Errorf(psbterr.ErrValidation,
			"wallet name is required")
	}

	if w.secret != nil {
		return psbterr.Errorf(psbterr.ErrValidation,
			"wallet %q already holds a secret", w.name)
	}

	if err := w.ensureParams(); err != nil {
		return err
	}

	ciphertext, err := crypter.Seal(*w.salt, *w.nonce, password, plaintext)
	if err != nil {
		return err
	}

	w.name = name
	w.derivation = derivation
	w.secret = &EncryptedSecret{Kind: kind, Ciphertext: ciphertext}

	log.Debugf("Stored %v secret for wallet %q at %v", kind, name,
		derivation)

	return nil
}

// ensureParams generates the salt and nonce if they are not yet set. The
// caller must hold the lock.
func (w *Wallet) ensureParams() error {
	if w.salt == nil {
		salt, err := crypter.GenerateSalt()
		if err != nil {
			return err
		}
		w.salt = &salt
	}

	if w.nonce == nil {
		nonce, err := crypter.GenerateNonce()
		if err != nil {
			return err
		}
		w.nonce = &nonce
	}

	return nil
}

// decrypt opens the secret. The caller must hold the lock and wipe the
// returned plaintext.
func (w *Wallet) decrypt(password string) ([]byte, error) {
	if w.secret == nil || w.salt == nil || w.nonce == nil {
		return nil, psbterr.Errorf(psbterr.ErrValidation,
			"wallet %q holds no secret", w.name)
	}

	return crypter.Open(*w.salt, *w.nonce, password, w.secret.Ciphertext)
}

// unlock turns the decrypted secret into the master key for net. The caller
// must hold the lock and zero the returned key.
func (w *Wallet) unlock(password string,
	net keychain.Network) (*hdkeychain.ExtendedKey, error) {

	plaintext, err := w.decrypt(password)
	if err != nil {
		return nil, err
	}
	defer zero.Bytes(plaintext)

	switch w.secret.Kind {
	case SecretSeed:
		seed, err := bip39.NewSeedWithErrorChecking(string(plaintext), "")
		if err != nil {
			return nil, psbterr.New(psbterr.ErrKeyFormat,
				"stored mnemonic is invalid", err)
		}
		defer zero.Bytes(seed)

		return keychain.MasterFromSeed(seed, net)

	case SecretExtendedKey:
		key, err := hdkeychain.NewKeyFromString(string(plaintext))
		if err != nil {
			return nil, psbterr.New(psbterr.ErrKeyFormat,
				"stored extended key is invalid", err)
		}
		key.SetNet(net.Params())

		return key, nil

	default:
		return nil, psbterr.Errorf(psbterr.ErrKeyFormat,
			"unknown secret kind %d", w.secret.Kind)
	}
}

// Unlock decrypts the secret and returns the master key for net. The caller
// owns the key and should call Zero on it when done.
func (w *Wallet) Unlock(password string,
	net keychain.Network) (*hdkeychain.ExtendedKey, error) {

	w.mu.Lock()
	defer w.mu.Unlock()

	return w.unlock(password, net)
}

// WithUnlocked unlocks the wallet and calls fn with the master key and the
// path it sits at. The wallet stays locked against concurrent use while fn
// runs, and the master key is zeroed once fn returns.
func (w *Wallet) WithUnlocked(password string, net keychain.Network,
	fn func(master *hdkeychain.ExtendedKey, base keychain.Path) error) error {

	w.mu.Lock()
	defer w.mu.Unlock()

	master, err := w.unlock(password, net)
	if err != nil {
		return err
	}
	defer master.Zero()

	log.Tracef("Unlocked wallet %q", w.name)

	return fn(master, w.derivation)
}

// RevealSecret returns the plaintext secret: the mnemonic or the extended
// private key.
func (w *Wallet) RevealSecret(password string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	plaintext, err := w.decrypt(password)
	if err != nil {
		return "", err
	}
	defer zero.Bytes(plaintext)

	return string(plaintext), nil
}

// DeriveXPub returns the master fingerprint of the unlocked key together
// with the extended public key at fullPath. fullPath is taken relative to
// the unlocked key itself, not to the wallet's derivation.
func (w *Wallet) DeriveXPub(fullPath keychain.Path, password string,
	net keychain.Network) (keychain.Fingerprint, string, error) {

	return w.deriveXPub(password, net, func(master *hdkeychain.ExtendedKey,
		_ keychain.Path) (*hdkeychain.ExtendedKey, error) {

		return keychain.DerivePath(master, fullPath)
	})
}

// DeriveOriginXPub is like DeriveXPub but takes fullPath as a key origin
// path: it must extend the wallet's derivation, which the unlocked key is
// assumed to sit at.
func (w *Wallet) DeriveOriginXPub(fullPath keychain.Path, password string,
	net keychain.Network) (keychain.Fingerprint, string, error) {

	return w.deriveXPub(password, net, func(master *hdkeychain.ExtendedKey,
		base keychain.Path) (*hdkeychain.ExtendedKey, error) {

		return keychain.DeriveRelative(master, base, fullPath)
	})
}

func (w *Wallet) deriveXPub(password string, net keychain.Network,
	derive func(*hdkeychain.ExtendedKey, keychain.Path) (
		*hdkeychain.ExtendedKey, error)) (keychain.Fingerprint, string,
	error) {

	var (
		fp   keychain.Fingerprint
		xpub string
	)
	err := w.WithUnlocked(password, net, func(master *hdkeychain.ExtendedKey,
		base keychain.Path) error {

		var err error
		fp, err = keychain.MasterFingerprint(master)
		if err != nil {
			return err
		}

		child, err := derive(master, base)
		if err != nil {
			return err
		}
		defer child.Zero()

		pub, err := child.Neuter()
		if err != nil {
			return psbterr.New(psbterr.ErrDerivation,
				"unable to neuter key", err)
		}
		xpub = pub.String()

		return nil
	})
	if err != nil {
		return 0, "", err
	}

	return fp, xpub, nil
}

// walletRecord is the persisted form of a Wallet.
type walletRecord struct {
	Name       string           `json:"name"`
	Salt       []byte           `json:"salt,omitempty"`
	Nonce      []byte           `json:"nonce,omitempty"`
	Secret     *EncryptedSecret `json:"secret,omitempty"`
	Derivation string           `json:"derivation"`
}

// MarshalJSON implements json.Marshaler.
func (w *Wallet) MarshalJSON() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rec := walletRecord{
		Name:       w.name,
		Secret:     w.secret,
		Derivation: w.derivation.String(),
	}
	if w.salt != nil {
		rec.Salt = w.salt[:]
	}
	if w.nonce != nil {
		rec.Nonce = w.nonce[:]
	}

	return json.Marshal(rec)
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *Wallet) UnmarshalJSON(data []byte) error {
	var rec walletRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return psbterr.New(psbterr.ErrParse, "invalid wallet record", err)
	}

	derivation, err := keychain.ParsePath(rec.Derivation)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.name = rec.Name
	w.derivation = derivation
	w.secret = rec.Secret
	w.salt, w.nonce = nil, nil

	if rec.Salt != nil {
		if len(rec.Salt) != crypter.SaltSize {
			return psbterr.Errorf(psbterr.ErrParse,
				"wallet %q: salt must be %d bytes, got %d",
				rec.Name, crypter.SaltSize, len(rec.Salt))
		}
		w.salt = new(crypter.Salt)
		copy(w.salt[:], rec.Salt)
	}

	if rec.Nonce != nil {
		if len(rec.Nonce) != crypter.NonceSize {
			return psbterr.Errorf(psbterr.ErrParse,
				"wallet %q: nonce must be %d bytes, got %d",
				rec.Name, crypter.NonceSize, len(rec.Nonce))
		}
		w.nonce = new(crypter.Nonce)
		copy(w.nonce[:], rec.Nonce)
	}

	if w.secret != nil && (w.salt == nil || w.nonce == nil) {
		return psbterr.Errorf(psbterr.ErrParse,
			"wallet %q: secret without salt and nonce", rec.Name)
	}

	return nil
}

// String returns a description of the wallet that never includes secrets.
func (w *Wallet) String() string {
	return fmt.Sprintf("%s (%v, %v)", w.Name(), w.Kind(), w.Derivation())
}
