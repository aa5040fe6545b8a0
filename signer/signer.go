// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package signer adds ECDSA partial signatures to the SegWit v0 inputs of a
// PSBT, deriving each signing key from the per-input BIP32 hints that match
// the wallet's master fingerprint.
package signer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/psbtsigner/keychain"
	"github.com/btcsuite/psbtsigner/psbterr"
	"github.com/btcsuite/psbtsigner/vault"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// SignResult describes a successful signing pass.
type SignResult struct {
	// SignedInputs lists the input indexes that received a signature.
	// After a successful pass this is every input.
	SignedInputs []uint32

	// Packet is the signed packet.
	Packet *psbt.Packet
}

// stagedSig is a signature waiting to be inserted into an input.
type stagedSig struct {
	input int
	sig   *psbt.PartialSig
}

// DecodePsbt parses a base64 encoded PSBT.
func DecodePsbt(psbtB64 string) (*psbt.Packet, error) {
	packet, err := psbt.NewFromRawBytes(
		strings.NewReader(strings.TrimSpace(psbtB64)), true,
	)
	if err != nil {
		return nil, psbterr.New(psbterr.ErrPsbtParse,
			"unable to decode psbt", err)
	}

	return packet, nil
}

// DecodePsbtAndSign decodes a base64 PSBT, unlocks the wallet with password,
// signs every input and returns the re-encoded PSBT. Either every input is
// signed or the call fails and nothing is returned.
func DecodePsbtAndSign(psbtB64 string, w *vault.Wallet, password string,
	net keychain.Network) (string, error) {

	packet, err := DecodePsbt(psbtB64)
	if err != nil {
		return "", err
	}

	err = w.WithUnlocked(password, net, func(
		master *hdkeychain.ExtendedKey, base keychain.Path) error {

		_, err := SignPacket(packet, master, base)
		return err
	})
	if err != nil {
		return "", err
	}

	signed, err := packet.B64Encode()
	if err != nil {
		return "", psbterr.New(psbterr.ErrPsbtParse,
			"unable to encode psbt", err)
	}

	return signed, nil
}

// checkWitnessData makes sure every input carries the witness script and
// witness UTXO needed to compute its SegWit v0 sighash.
func checkWitnessData(packet *psbt.Packet) error {
	if len(packet.Inputs) != len(packet.UnsignedTx.TxIn) {
		return psbterr.Errorf(psbterr.ErrPsbtParse,
			"psbt has %d inputs but transaction has %d",
			len(packet.Inputs), len(packet.UnsignedTx.TxIn))
	}

	for idx, in := range packet.Inputs {
		if len(in.WitnessScript) == 0 {
			return psbterr.Errorf(psbterr.ErrMissingWitnessData,
				"input %d has no witness script", idx)
		}

		if in.WitnessUtxo == nil {
			return psbterr.Errorf(psbterr.ErrMissingWitnessData,
				"input %d has no witness utxo", idx)
		}
	}

	return nil
}

// prevOutFetcher builds a prevout fetcher from the witness UTXOs of the
// packet. checkWitnessData must have passed.
func prevOutFetcher(packet *psbt.Packet) *txscript.MultiPrevOutFetcher {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for idx, txIn := range packet.UnsignedTx.TxIn {
		fetcher.AddPrevOut(
			txIn.PreviousOutPoint, packet.Inputs[idx].WitnessUtxo,
		)
	}

	return fetcher
}

// sigHashType returns the sighash type to sign an input with. An unset type
// means SIGHASH_ALL.
func sigHashType(idx int, in *psbt.PInput) txscript.SigHashType {
	hashType := in.SighashType

	switch hashType {
	case 0:
		return txscript.SigHashAll

	case txscript.SigHashAll, txscript.SigHashNone, txscript.SigHashSingle,
		txscript.SigHashAll | txscript.SigHashAnyOneCanPay,
		txscript.SigHashNone | txscript.SigHashAnyOneCanPay,
		txscript.SigHashSingle | txscript.SigHashAnyOneCanPay:

		return hashType

	default:
		log.Warnf("Input %d declares non-standard sighash type %#x, "+
			"signing with SIGHASH_ALL", idx, uint32(hashType))

		return txscript.SigHashAll
	}
}

// SignPacket signs every input of packet with keys derived from master,
// which sits at path base. Signatures are only inserted once every input
// has been signed, so on error the packet is left untouched.
func SignPacket(packet *psbt.Packet, master *hdkeychain.ExtendedKey,
	base keychain.Path) (*SignResult, error) {

	if err := checkWitnessData(packet); err != nil {
		return nil, err
	}

	fingerprint, err := keychain.MasterFingerprint(master)
	if err != nil {
		return nil, err
	}

	tx := packet.UnsignedTx
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher(packet))

	var (
		staged []stagedSig
		signed []uint32
	)
	for idx := range packet.Inputs {
		sigs, err := signInput(
			packet, idx, sigHashes, master, base, fingerprint,
		)
		if err != nil {
			return nil, err
		}

		if len(sigs) == 0 {
			return nil, psbterr.Errorf(psbterr.ErrNoMatchingKey,
				"input %d has no derivation for fingerprint %v",
				idx, fingerprint)
		}

		for _, sig := range sigs {
			staged = append(staged, stagedSig{input: idx, sig: sig})
		}
		signed = append(signed, uint32(idx))

		log.Debugf("Signed input %d (%v) with %d key(s)", idx,
			tx.TxIn[idx].PreviousOutPoint, len(sigs))
	}

	for _, s := range staged {
		insertPartialSig(&packet.Inputs[s.input], s.sig)
	}

	log.Tracef("Signed packet: %v", newLogClosure(func() string {
		return spew.Sdump(packet.Inputs)
	}))

	return &SignResult{SignedInputs: signed, Packet: packet}, nil
}

// signInput produces one signature for every derivation hint of input idx
// whose fingerprint matches.
func signInput(packet *psbt.Packet, idx int, sigHashes *txscript.TxSigHashes,
	master *hdkeychain.ExtendedKey, base keychain.Path,
	fingerprint keychain.Fingerprint) ([]*psbt.PartialSig, error) {

	in := &packet.Inputs[idx]
	hashType := sigHashType(idx, in)

	sigHash, err := txscript.CalcWitnessSigHash(
		in.WitnessScript, sigHashes, hashType, packet.UnsignedTx, idx,
		in.WitnessUtxo.Value,
	)
	if err != nil {
		return nil, psbterr.New(psbterr.ErrPsbtParse,
			fmt.Sprintf("unable to compute sighash for input %d",
				idx), err)
	}

	var (
		sigs []*psbt.PartialSig
		seen = fn.NewSet[string]()
	)
	for _, hint := range in.Bip32Derivation {
		if keychain.Fingerprint(hint.MasterKeyFingerprint) != fingerprint {
			continue
		}

		if seen.Contains(string(hint.PubKey)) {
			continue
		}
		seen.Add(string(hint.PubKey))

		sig, err := signWithHint(idx, hint, sigHash, hashType, master, base)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}

	return sigs, nil
}

// signWithHint derives the key described by hint, checks it against the
// hinted public key, signs sigHash and verifies the result.
func signWithHint(idx int, hint *psbt.Bip32Derivation, sigHash []byte,
	hashType txscript.SigHashType, master *hdkeychain.ExtendedKey,
	base keychain.Path) (*psbt.PartialSig, error) {

	path := keychain.Path(hint.Bip32Path)

	child, err := keychain.DeriveRelative(master, base, path)
	if err != nil {
		return nil, fmt.Errorf("input %d: %w", idx, err)
	}
	defer child.Zero()

	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, psbterr.New(psbterr.ErrDerivation,
			fmt.Sprintf("input %d: no private key at %v", idx, path),
			err)
	}
	defer priv.Zero()

	pub := priv.PubKey()

	hinted, err := btcec.ParsePubKey(hint.PubKey)
	if err != nil || !hinted.IsEqual(pub) {
		return nil, psbterr.Errorf(psbterr.ErrDerivation,
			"input %d: key derived at %v does not match hinted "+
				"public key %x", idx, path, hint.PubKey)
	}

	sig := ecdsa.Sign(priv, sigHash)
	if !sig.Verify(sigHash, pub) {
		return nil, psbterr.Errorf(psbterr.ErrSignatureVerification,
			"input %d: signature for %x failed to verify", idx,
			hint.PubKey)
	}

	der := sig.Serialize()
	sigBytes := make([]byte, 0, len(der)+1)
	sigBytes = append(sigBytes, der...)
	sigBytes = append(sigBytes, byte(hashType))

	pubKey := make([]byte, len(hint.PubKey))
	copy(pubKey, hint.PubKey)

	return &psbt.PartialSig{PubKey: pubKey, Signature: sigBytes}, nil
}

// insertPartialSig adds sig to the input, replacing any signature already
// present for the same public key.
func insertPartialSig(in *psbt.PInput, sig *psbt.PartialSig) {
	for i, existing := range in.PartialSigs {
		if bytes.Equal(existing.PubKey, sig.PubKey) {
			in.PartialSigs[i] = sig
			return
		}
	}

	in.PartialSigs = append(in.PartialSigs, sig)
}
