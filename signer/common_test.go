// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signer

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/psbtsigner/keychain"
	"github.com/btcsuite/psbtsigner/vault"
	"github.com/stretchr/testify/require"
)

const (
	testPassword = "Qwerty123"
	testMnemonic = "solar goat auto bachelor chronic input twin depth " +
		"fork scale divorce fury mushroom column image sauce car " +
		"public artist announce treat spend jacket physical"

	testAccountTprv = "tprv8h6DdxS2UeyFd8WLP18Newd147MWcvdMBFHiSzAkLHYgL" +
		"TDnj1gXh1XyPjd6AE1fCYtfXdyQ3g3HEFPULLbSdWFVL4TiEGjTW1WGdfFfmWS"

	testNet = keychain.Regtest

	inputValue  = 100_000
	outputValue = 90_000
)

var testAccount = keychain.Path{
	84 + hdkeychain.HardenedKeyStart,
	1 + hdkeychain.HardenedKeyStart,
	hdkeychain.HardenedKeyStart,
}

// testInput describes one input of a test packet.
type testInput struct {
	// path is the full derivation path of the signing key.
	path keychain.Path

	// fingerprint overrides the master fingerprint of the hint.
	fingerprint *uint32

	// pubKey overrides the hinted public key.
	pubKey []byte

	// noWitnessScript leaves the witness script out.
	noWitnessScript bool

	// sigHashType is declared on the input when non-zero.
	sigHashType txscript.SigHashType
}

// testPacket is a packet together with the data needed to check it.
type testPacket struct {
	packet    *psbt.Packet
	pkScripts [][]byte
	scripts   [][]byte
}

func seedWallet(t *testing.T) *vault.Wallet {
	t.Helper()

	w, err := vault.NewFromSeed("wallet 1", testMnemonic, testPassword)
	require.NoError(t, err)

	return w
}

func accountWallet(t *testing.T) *vault.Wallet {
	t.Helper()

	w, err := vault.NewFromExtendedKey(
		"account", testAccountTprv, testAccount.String(), testPassword,
	)
	require.NoError(t, err)

	return w
}

// unlockedKey unlocks w and returns its master key and fingerprint.
func unlockedKey(t *testing.T, w *vault.Wallet) (*hdkeychain.ExtendedKey,
	uint32) {

	t.Helper()

	master, err := w.Unlock(testPassword, testNet)
	require.NoError(t, err)
	t.Cleanup(master.Zero)

	fp, err := keychain.MasterFingerprint(master)
	require.NoError(t, err)

	return master, uint32(fp)
}

// p2wshCheckSig returns the witness script <pubkey> OP_CHECKSIG and its
// P2WSH output script.
func p2wshCheckSig(t *testing.T, pubKey []byte) ([]byte, []byte) {
	t.Helper()

	script, err := txscript.NewScriptBuilder().
		AddData(pubKey).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	require.NoError(t, err)

	hash := sha256.Sum256(script)
	pkScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(hash[:]).
		Script()
	require.NoError(t, err)

	return script, pkScript
}

// newTestPacket builds a packet spending one P2WSH output per input, with
// keys derived from master (which sits at base) and hints carrying fp.
func newTestPacket(t *testing.T, master *hdkeychain.ExtendedKey,
	base keychain.Path, fp uint32, inputs ...testInput) *testPacket {

	t.Helper()

	outpoints := make([]*wire.OutPoint, len(inputs))
	sequences := make([]uint32, len(inputs))
	for i := range inputs {
		outpoints[i] = &wire.OutPoint{
			Hash:  chainhash.Hash{byte(i + 1)},
			Index: uint32(i),
		}
		sequences[i] = wire.MaxTxInSequenceNum
	}

	_, changeScript := p2wshCheckSig(t, make([]byte, 33))
	outputs := []*wire.TxOut{
		wire.NewTxOut(outputValue*int64(len(inputs)), changeScript),
	}

	packet, err := psbt.New(outpoints, outputs, 2, 0, sequences)
	require.NoError(t, err)

	updater, err := psbt.NewUpdater(packet)
	require.NoError(t, err)

	tp := &testPacket{packet: packet}
	for i, in := range inputs {
		key, err := keychain.DeriveRelative(master, base, in.path)
		require.NoError(t, err)

		pub, err := key.ECPubKey()
		require.NoError(t, err)
		key.Zero()

		pubKey := pub.SerializeCompressed()
		script, pkScript := p2wshCheckSig(t, pubKey)
		tp.scripts = append(tp.scripts, script)
		tp.pkScripts = append(tp.pkScripts, pkScript)

		require.NoError(t, updater.AddInWitnessUtxo(
			wire.NewTxOut(inputValue, pkScript), i,
		))

		if !in.noWitnessScript {
			require.NoError(t, updater.AddInWitnessScript(script, i))
		}

		if in.sigHashType != 0 {
			require.NoError(t, updater.AddInSighashType(
				in.sigHashType, i,
			))
		}

		hintFP := fp
		if in.fingerprint != nil {
			hintFP = *in.fingerprint
		}
		hintKey := pubKey
		if in.pubKey != nil {
			hintKey = in.pubKey
		}

		require.NoError(t, updater.AddInBip32Derivation(
			hintFP, in.path, hintKey, i,
		))
	}

	return tp
}

func (tp *testPacket) b64(t *testing.T) string {
	t.Helper()

	s, err := tp.packet.B64Encode()
	require.NoError(t, err)

	return s
}

func (tp *testPacket) fetcher() *txscript.MultiPrevOutFetcher {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, txIn := range tp.packet.UnsignedTx.TxIn {
		fetcher.AddPrevOut(
			txIn.PreviousOutPoint,
			wire.NewTxOut(inputValue, tp.pkScripts[i]),
		)
	}

	return fetcher
}

// requireValidSigs checks that every partial signature of signed verifies
// against its public key and sighash.
func requireValidSigs(t *testing.T, signed *psbt.Packet) {
	t.Helper()

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, txIn := range signed.UnsignedTx.TxIn {
		fetcher.AddPrevOut(
			txIn.PreviousOutPoint, signed.Inputs[i].WitnessUtxo,
		)
	}
	sigHashes := txscript.NewTxSigHashes(signed.UnsignedTx, fetcher)

	for i, in := range signed.Inputs {
		require.NotEmpty(t, in.PartialSigs, "input %d", i)

		for _, ps := range in.PartialSigs {
			hashType := txscript.SigHashType(
				ps.Signature[len(ps.Signature)-1],
			)
			sigHash, err := txscript.CalcWitnessSigHash(
				in.WitnessScript, sigHashes, hashType,
				signed.UnsignedTx, i, in.WitnessUtxo.Value,
			)
			require.NoError(t, err)

			sig, err := ecdsa.ParseDERSignature(
				ps.Signature[:len(ps.Signature)-1],
			)
			require.NoError(t, err)

			pub, err := btcec.ParsePubKey(ps.PubKey)
			require.NoError(t, err)

			require.True(t, sig.Verify(sigHash, pub), "input %d", i)
		}
	}
}

// requireScriptsExecute finalizes every single-key input of signed and runs
// it through the script engine.
func (tp *testPacket) requireScriptsExecute(t *testing.T,
	signed *psbt.Packet) {

	t.Helper()

	tx := signed.UnsignedTx.Copy()
	for i, in := range signed.Inputs {
		require.Len(t, in.PartialSigs, 1)
		tx.TxIn[i].Witness = wire.TxWitness{
			in.PartialSigs[0].Signature, tp.scripts[i],
		}
	}

	fetcher := tp.fetcher()
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i := range tx.TxIn {
		vm, err := txscript.NewEngine(
			tp.pkScripts[i], tx, i, txscript.StandardVerifyFlags,
			nil, sigHashes, inputValue, fetcher,
		)
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), "input %d", i)
	}
}

// requireUnsigned checks that no input of packet carries a signature.
func requireUnsigned(t *testing.T, packet *psbt.Packet) {
	t.Helper()

	for i, in := range packet.Inputs {
		require.Empty(t, in.PartialSigs, "input %d", i)
	}
}
