// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signer

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/psbtsigner/psbterr"
)

// Details is the summary of a PSBT shown to the user before approving it.
type Details struct {
	// TxID is the id of the unsigned transaction.
	TxID chainhash.Hash

	// Fee is the sum of the inputs minus the sum of the outputs.
	Fee btcutil.Amount

	// OutputTotal is the sum of all outputs.
	OutputTotal btcutil.Amount

	// NumInputs and NumOutputs count the transaction's inputs and
	// outputs.
	NumInputs  int
	NumOutputs int
}

// DecodeDetails decodes a base64 PSBT and summarizes it. Every input must
// carry UTXO information for the fee to be known.
func DecodeDetails(psbtB64 string) (*Details, error) {
	packet, err := DecodePsbt(psbtB64)
	if err != nil {
		return nil, err
	}

	fee, err := packet.GetTxFee()
	if err != nil {
		return nil, psbterr.New(psbterr.ErrMissingWitnessData,
			"unable to compute fee", err)
	}

	var total btcutil.Amount
	for _, out := range packet.UnsignedTx.TxOut {
		total += btcutil.Amount(out.Value)
	}

	return &Details{
		TxID:        packet.UnsignedTx.TxHash(),
		Fee:         fee,
		OutputTotal: total,
		NumInputs:   len(packet.UnsignedTx.TxIn),
		NumOutputs:  len(packet.UnsignedTx.TxOut),
	}, nil
}
