// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/psbtsigner/keychain"
	"github.com/btcsuite/psbtsigner/psbterr"
	"github.com/tyler-smith/go-bip39"
)

// seedEntropyBits is the entropy of generated mnemonics, giving 24 words.
const seedEntropyBits = 256

// SecretKind tells how the plaintext of an encrypted secret is interpreted.
type SecretKind uint8

const (
	// SecretNone means the wallet holds no secret yet.
	SecretNone SecretKind = iota

	// SecretSeed is a BIP39 mnemonic.
	SecretSeed

	// SecretExtendedKey is a base58 BIP32 extended private key.
	SecretExtendedKey
)

// String returns the persisted name of the kind.
func (k SecretKind) String() string {
	switch k {
	case SecretSeed:
		return "seed"
	case SecretExtendedKey:
		return "xprv"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k SecretKind) MarshalText() ([]byte, error) {
	if k == SecretNone {
		return nil, fmt.Errorf("cannot marshal empty secret kind")
	}

	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SecretKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "seed":
		*k = SecretSeed
	case "xprv":
		*k = SecretExtendedKey
	default:
		return psbterr.Errorf(psbterr.ErrParse,
			"unknown secret kind %q", text)
	}

	return nil
}

// EncryptedSecret is a wallet's root secret sealed with the wallet's salt
// and nonce.
type EncryptedSecret struct {
	Kind       SecretKind `json:"kind"`
	Ciphertext string     `json:"ciphertext"`
}

// normalizeMnemonic collapses whitespace and lowercases the words.
func normalizeMnemonic(words string) string {
	return strings.Join(strings.Fields(strings.ToLower(words)), " ")
}

// GenerateSeed returns a fresh 24 word BIP39 mnemonic.
func GenerateSeed() (string, error) {
	entropy, err := bip39.NewEntropy(seedEntropyBits)
	if err != nil {
		return "", fmt.Errorf("unable to generate entropy: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	clear(entropy)
	if err != nil {
		return "", fmt.Errorf("unable to generate mnemonic: %w", err)
	}

	return mnemonic, nil
}

// ValidateSeed checks that words form a valid BIP39 mnemonic.
func ValidateSeed(words string) error {
	if !bip39.IsMnemonicValid(normalizeMnemonic(words)) {
		return psbterr.Errorf(psbterr.ErrParse, "invalid mnemonic")
	}

	return nil
}

// parseExtendedPrivateKey parses xprv and makes sure it is private.
func parseExtendedPrivateKey(xprv string) (*hdkeychain.ExtendedKey, error) {
	key, err := hdkeychain.NewKeyFromString(strings.TrimSpace(xprv))
	if err != nil {
		return nil, psbterr.New(psbterr.ErrParse,
			"invalid extended private key", err)
	}

	if !key.IsPrivate() {
		return nil, psbterr.Errorf(psbterr.ErrParse,
			"extended key is not private")
	}

	return key, nil
}

// ValidateExtendedKey checks an extended private key and the derivation path
// it sits at before anything is encrypted.
func ValidateExtendedKey(xprv, derivation string) error {
	key, err := parseExtendedPrivateKey(xprv)
	if err != nil {
		return err
	}
	key.Zero()

	_, err = keychain.ParsePath(derivation)

	return err
}
