// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signer

import (
	"context"
	"testing"

	"github.com/btcsuite/psbtsigner/keychain"
	"github.com/btcsuite/psbtsigner/psbterr"
	"github.com/stretchr/testify/require"
)

// TestSignBatch signs packets for two wallets concurrently.
func TestSignBatch(t *testing.T) {
	t.Parallel()

	seed := seedWallet(t)
	account := accountWallet(t)

	seedMaster, seedFP := unlockedKey(t, seed)
	accountMaster, accountFP := unlockedKey(t, account)

	jobs := []Job{{
		Wallet:   seed,
		Password: testPassword,
		Psbt: newTestPacket(t, seedMaster, keychain.RootPath, seedFP,
			testInput{path: testAccount.Child(0, 0)},
		).b64(t),
	}, {
		Wallet:   account,
		Password: testPassword,
		Psbt: newTestPacket(t, accountMaster, testAccount, accountFP,
			testInput{path: testAccount.Child(0, 4)},
			testInput{path: testAccount.Child(1, 0)},
		).b64(t),
	}, {
		Wallet:   seed,
		Password: testPassword,
		Psbt: newTestPacket(t, seedMaster, keychain.RootPath, seedFP,
			testInput{path: testAccount.Child(0, 7)},
		).b64(t),
	}}

	results, err := SignBatch(t.Context(), jobs, testNet)
	require.NoError(t, err)
	require.Len(t, results, len(jobs))

	for i, res := range results {
		signed, err := DecodePsbt(res)
		require.NoError(t, err, "job %d", i)
		requireValidSigs(t, signed)
	}
}

// TestSignBatchFailure checks that one failing job fails the batch.
func TestSignBatchFailure(t *testing.T) {
	t.Parallel()

	seed := seedWallet(t)
	master, fp := unlockedKey(t, seed)
	packet := newTestPacket(t, master, keychain.RootPath, fp,
		testInput{path: testAccount.Child(0, 0)},
	).b64(t)

	jobs := []Job{
		{Wallet: seed, Password: testPassword, Psbt: packet},
		{Wallet: seed, Password: "wrong", Psbt: packet},
	}

	results, err := SignBatch(t.Context(), jobs, testNet)
	require.Nil(t, results)
	require.True(t, psbterr.IsError(err, psbterr.ErrDecryption))

	// A cancelled context stops the batch before any work is done.
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err = SignBatch(ctx, jobs[:1], testNet)
	require.ErrorIs(t, err, context.Canceled)
}
