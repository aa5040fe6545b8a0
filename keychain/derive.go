// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/psbtsigner/psbterr"
)

// Fingerprint is the BIP32 key fingerprint: the first four bytes of
// HASH160 of the compressed public key, read as a little-endian uint32 the
// same way psbt.Bip32Derivation stores MasterKeyFingerprint.
type Fingerprint uint32

// String returns the fingerprint as the usual eight hex characters.
func (f Fingerprint) String() string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(f))

	return hex.EncodeToString(b[:])
}

// MasterFingerprint computes the fingerprint of key.
func MasterFingerprint(key *hdkeychain.ExtendedKey) (Fingerprint, error) {
	pub, err := key.ECPubKey()
	if err != nil {
		return 0, psbterr.New(psbterr.ErrKeyFormat,
			"unable to compute fingerprint", err)
	}

	id := btcutil.Hash160(pub.SerializeCompressed())

	return Fingerprint(binary.LittleEndian.Uint32(id[:4])), nil
}

// MasterFromSeed creates the BIP32 master key for a BIP39 seed.
func MasterFromSeed(seed []byte, net Network) (*hdkeychain.ExtendedKey,
	error) {

	master, err := hdkeychain.NewMaster(seed, net.Params())
	if err != nil {
		return nil, psbterr.New(psbterr.ErrKeyFormat,
			"unable to create master key", err)
	}

	return master, nil
}

// cloneKey returns a deep copy of a private extended key so the copy can be
// zeroed without touching the original.
func cloneKey(key *hdkeychain.ExtendedKey) (*hdkeychain.ExtendedKey, error) {
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	defer priv.Zero()

	var parentFP [4]byte
	binary.BigEndian.PutUint32(parentFP[:], key.ParentFingerprint())

	version := make([]byte, len(key.Version()))
	copy(version, key.Version())

	return hdkeychain.NewExtendedKey(
		version, priv.Serialize(), key.ChainCode(), parentFP[:],
		key.Depth(), key.ChildIndex(), true,
	), nil
}

// DerivePath derives the private child of key along path. Intermediate keys
// are zeroed. The returned key is always a fresh copy that the caller owns
// and should zero when done, even for an empty path.
func DerivePath(key *hdkeychain.ExtendedKey, path Path) (
	*hdkeychain.ExtendedKey, error) {

	current, err := cloneKey(key)
	if err != nil {
		return nil, psbterr.New(psbterr.ErrDerivation,
			"derivation requires a private key", err)
	}

	for _, index := range path {
		child, err := current.Derive(index)
		current.Zero()

		if err != nil {
			desc := fmt.Sprintf("unable to derive child %d", index)
			if errors.Is(err, hdkeychain.ErrInvalidChild) {
				desc = fmt.Sprintf("invalid child at index %d", index)
			}

			return nil, psbterr.New(psbterr.ErrDerivation, desc, err)
		}

		current = child
	}

	return current, nil
}

// DeriveRelative derives the key at full from master, where master is the
// key sitting at base. Only the segments of full beyond base are derived.
func DeriveRelative(master *hdkeychain.ExtendedKey, base, full Path) (
	*hdkeychain.ExtendedKey, error) {

	partial, err := PartialPath(base, full)
	if err != nil {
		return nil, err
	}

	log.Tracef("Deriving %v relative to %v", partial, base)

	return DerivePath(master, partial)
}
