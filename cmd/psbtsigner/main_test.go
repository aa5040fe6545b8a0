// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/psbtsigner/keychain"
	"github.com/btcsuite/psbtsigner/psbterr"
	flags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"
)

const (
	testPassword = "Qwerty123"
	testMnemonic = "solar goat auto bachelor chronic input twin depth " +
		"fork scale divorce fury mushroom column image sauce car " +
		"public artist announce treat spend jacket physical"

	testAccountTpub = "tpubDDnFnNUGd2evWbY8Geny4MH7d8sSnFpFkYtVjWD3kZM5A" +
		"wUZMQW7sW9qZqhJU34NYHNCMhjokmrAMwzYgBQMVXaS48HUueLV6MuanJUDMdj"
	testLeafPub = "0224177a9d804acda6b276636f04fe2379a304777139b78e230caf" +
		"6845f04b6f75"
)

// cli runs commands against one data directory.
type cli struct {
	t   *testing.T
	dir string
	env map[string]string
}

func newCLI(t *testing.T) *cli {
	return &cli{t: t, dir: t.TempDir()}
}

// withPassword returns a cli that passes password through the environment.
func (c *cli) withPassword(password string) *cli {
	return &cli{
		t:   c.t,
		dir: c.dir,
		env: map[string]string{passwordEnv: password},
	}
}

func (c *cli) lookupEnv(key string) (string, bool) {
	v, ok := c.env[key]
	return v, ok
}

// run executes args with the given stdin and returns stdout.
func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()

	base := []string{
		"--appdata=" + c.dir,
		"--configfile=" + filepath.Join(c.dir, "none.conf"),
		"--logdir=" + filepath.Join(c.dir, "logs"),
		"--dbbackend=sqlite",
	}

	var out bytes.Buffer
	err := run(
		context.Background(), append(base, args...), c.lookupEnv,
		strings.NewReader(stdin), &out, &bytes.Buffer{},
	)

	return out.String(), err
}

// mustRun is run that requires success.
func (c *cli) mustRun(stdin string, args ...string) string {
	c.t.Helper()

	out, err := c.run(stdin, args...)
	require.NoError(c.t, err, "args %v", args)

	return out
}

// leafPacket returns a base64 PSBT with one P2WSH input locked to the key at
// m/84'/1'/0'/0/0 of the test mnemonic.
func leafPacket(t *testing.T) string {
	t.Helper()

	pubKey, err := hex.DecodeString(testLeafPub)
	require.NoError(t, err)

	script, err := txscript.NewScriptBuilder().
		AddData(pubKey).AddOp(txscript.OP_CHECKSIG).Script()
	require.NoError(t, err)

	hash := sha256.Sum256(script)
	pkScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).AddData(hash[:]).Script()
	require.NoError(t, err)

	packet, err := psbt.New(
		[]*wire.OutPoint{{Hash: chainhash.Hash{1}}},
		[]*wire.TxOut{wire.NewTxOut(90_000, pkScript)},
		2, 0, []uint32{wire.MaxTxInSequenceNum},
	)
	require.NoError(t, err)

	updater, err := psbt.NewUpdater(packet)
	require.NoError(t, err)
	require.NoError(t, updater.AddInWitnessUtxo(
		wire.NewTxOut(100_000, pkScript), 0,
	))
	require.NoError(t, updater.AddInWitnessScript(script, 0))

	path, err := keychain.ParsePath("m/84'/1'/0'/0/0")
	require.NoError(t, err)
	require.NoError(t, updater.AddInBip32Derivation(
		0xb3a0f360, path, pubKey, 0,
	))

	b64, err := packet.B64Encode()
	require.NoError(t, err)

	return b64
}

// requireSigned checks that signed carries one partial signature.
func requireSigned(t *testing.T, signed string) {
	t.Helper()

	packet, err := psbt.NewFromRawBytes(
		strings.NewReader(strings.TrimSpace(signed)), true,
	)
	require.NoError(t, err)
	require.Len(t, packet.Inputs[0].PartialSigs, 1)
}

// TestWalletLifecycle drives the commands end to end on one data
// directory.
func TestWalletLifecycle(t *testing.T) {
	c := newCLI(t)

	// Nothing can be imported before the account exists.
	_, err := c.withPassword(testPassword).run("", "import-seed",
		"--name=savings", "--words="+testMnemonic)
	require.True(t, psbterr.IsError(err, psbterr.ErrValidation), err)

	// The password is prompted for twice.
	out := c.mustRun(testPassword+"\n"+testPassword+"\n", "create",
		"--name=alice")
	require.Contains(t, out, `Account "alice" created`)

	// The seed words and the password are prompted for.
	out = c.mustRun(testMnemonic+"\n"+testPassword+"\n", "import-seed",
		"--name=savings")
	require.Contains(t, out, `Imported wallet "savings"`)

	out = c.mustRun("", "list")
	require.Contains(t, out, "* savings\tseed\tm")

	out = c.mustRun("", "network")
	require.Equal(t, "bitcoin\n", out)

	out = c.mustRun("", "network", "testnet")
	require.Equal(t, "testnet\n", out)

	qrFile := filepath.Join(c.dir, "xpub.png")
	out = c.withPassword(testPassword).mustRun("", "xpub",
		"--path=m/84'/1'/0'", "--qr="+qrFile)
	require.Contains(t, out, testAccountTpub)
	require.Contains(t, out, "[60f3a0b3/84'/1'/0']"+testAccountTpub)

	info, err := os.Stat(qrFile)
	require.NoError(t, err)
	require.NotZero(t, info.Size())

	b64 := leafPacket(t)

	out = c.mustRun(b64, "details")
	require.Contains(t, out, "Fee:     10000 sats")
	require.Contains(t, out, "Inputs:  1")

	// The PSBT is read from stdin.
	out = c.withPassword(testPassword).mustRun(b64, "sign")
	requireSigned(t, out)

	// Several PSBTs are signed as a batch.
	out = c.withPassword(testPassword).mustRun("", "sign",
		"--psbt="+b64, "--psbt="+b64)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	requireSigned(t, lines[0])
	require.Equal(t, lines[0], lines[1])

	_, err = c.withPassword("wrong").run("", "sign", "--psbt="+b64)
	require.True(t, psbterr.IsError(err, psbterr.ErrDecryption), err)

	out = c.withPassword(testPassword).mustRun("", "reveal")
	require.Equal(t, testMnemonic+"\n", out)

	out = c.withPassword(testPassword).mustRun("", "remove", "savings")
	require.Contains(t, out, `Removed wallet "savings"`)

	out = c.mustRun("", "list")
	require.Equal(t, "No wallets\n", out)
}

// TestApprove checks request approval and rejection.
func TestApprove(t *testing.T) {
	c := newCLI(t)

	c.withPassword(testPassword).mustRun("", "create", "--name=alice")
	c.withPassword(testPassword).mustRun("", "import-seed",
		"--name=savings", "--words="+testMnemonic)

	request := `{"psbt":"` + leafPacket(t) + `",` +
		`"request_type":"Withdrawal","amount":"0.0009"}`

	out := c.withPassword(testPassword).mustRun("", "--network=testnet",
		"approve", "--yes", "--request="+request)
	require.Contains(t, out, "Operation: withdrawal")
	require.Contains(
		t, out, "Amount:    "+btcutil.Amount(90_000).String(),
	)
	require.Contains(t, out, "Amount:    0.00090000 BTC")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	requireSigned(t, lines[len(lines)-1])

	// Declining the confirmation signs nothing.
	_, err := c.withPassword(testPassword).run("n\n", "approve",
		"--request="+request)
	require.True(t, psbterr.IsError(err, psbterr.ErrValidation), err)

	_, err = c.withPassword(testPassword).run("", "approve", "--yes",
		`--request={"psbt":"cHNidP8=","request_type":"swap"}`)
	require.True(t, psbterr.IsError(err, psbterr.ErrParse), err)
}

// TestImportXprv checks importing an account level key.
func TestImportXprv(t *testing.T) {
	c := newCLI(t)

	c.withPassword(testPassword).mustRun("", "create", "--name=alice")

	_, err := c.withPassword(testPassword).run("", "import-xprv",
		"--name=account", "--xprv="+testAccountTpub,
		"--derivation=m/84'/1'/0'")
	require.True(t, psbterr.IsError(err, psbterr.ErrParse), err)

	out := c.mustRun("", "list")
	require.Equal(t, "No wallets\n", out)
}

// TestPasswordFromEnv checks that the password is only taken from the
// environment or the prompt.
func TestPasswordFromEnv(t *testing.T) {
	c := newCLI(t)

	c.withPassword(testPassword).mustRun("", "create", "--name=alice")

	// There is no command line option for the password.
	_, err := c.run("", "--password="+testPassword, "list")
	var flagsErr *flags.Error
	require.ErrorAs(t, err, &flagsErr)
	require.Equal(t, flags.ErrUnknownFlag, flagsErr.Type)

	// Nor is it read from the config file.
	confFile := filepath.Join(c.dir, "psbtsigner.conf")
	require.NoError(t, os.WriteFile(
		confFile, []byte("password="+testPassword+"\n"), 0600,
	))
	_, err = c.run("", "--configfile="+confFile, "list")
	require.Error(t, err)

	// Without the environment variable the password is prompted for.
	out := c.mustRun(testMnemonic+"\n"+testPassword+"\n", "import-seed",
		"--name=savings")
	require.Contains(t, out, `Imported wallet "savings"`)

	_, err = c.withPassword("wrong").run("", "reveal")
	require.True(t, psbterr.IsError(err, psbterr.ErrDecryption), err)
}

// TestParseAndSetDebugLevels checks the debug level syntax.
func TestParseAndSetDebugLevels(t *testing.T) {
	testCases := []struct {
		level   string
		wantErr bool
	}{
		{level: "debug"},
		{level: "SGNR=trace,VLT=warn"},
		{level: "loud", wantErr: true},
		{level: "SGNR", wantErr: true},
		{level: "NOPE=info,SGNR=debug", wantErr: true},
		{level: "SGNR=loud", wantErr: true},
	}

	for _, tc := range testCases {
		err := parseAndSetDebugLevels(tc.level)
		if tc.wantErr {
			require.Error(t, err, tc.level)
			continue
		}
		require.NoError(t, err, tc.level)
	}

	setLogLevels(defaultLogLevel)
}
