// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signer

import (
	"context"
	"fmt"
	"runtime"

	"github.com/btcsuite/psbtsigner/keychain"
	"github.com/btcsuite/psbtsigner/vault"
	"golang.org/x/sync/errgroup"
)

// Job is one PSBT to sign with one wallet.
type Job struct {
	Wallet   *vault.Wallet
	Password string
	Psbt     string
}

// SignBatch signs the PSBTs of jobs concurrently and returns the signed
// PSBTs in job order. Jobs that share a wallet are serialized by the
// wallet's lock. The first failure cancels the jobs that have not started
// yet and is returned.
func SignBatch(ctx context.Context, jobs []Job,
	net keychain.Network) ([]string, error) {

	results := make([]string, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			signed, err := DecodePsbtAndSign(
				job.Psbt, job.Wallet, job.Password, net,
			)
			if err != nil {
				return fmt.Errorf("job %d (%s): %w", i,
					job.Wallet.Name(), err)
			}
			results[i] = signed

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debugf("Signed batch of %d psbts", len(jobs))

	return results, nil
}
