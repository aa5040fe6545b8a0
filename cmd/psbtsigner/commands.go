// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"strings"

	"github.com/btcsuite/psbtsigner/keychain"
	"github.com/btcsuite/psbtsigner/psbterr"
	"github.com/btcsuite/psbtsigner/request"
	"github.com/btcsuite/psbtsigner/signer"
	"github.com/btcsuite/psbtsigner/vault"
	flags "github.com/jessevdk/go-flags"
	"github.com/skip2/go-qrcode"
)

// registerCommands adds every subcommand to parser.
func (a *app) registerCommands(parser *flags.Parser) error {
	commands := []struct {
		name, short, long string
		data              flags.Commander
	}{{
		"create", "Create the account",
		"Set the account name and the password protecting every wallet.",
		&createCmd{app: a},
	}, {
		"generate-seed", "Generate a 24 word mnemonic",
		"Print a fresh BIP39 mnemonic. Nothing is stored.",
		&generateSeedCmd{app: a},
	}, {
		"import-seed", "Import a wallet from a mnemonic",
		"Encrypt a BIP39 mnemonic under the account password and add " +
			"it as a wallet. The words are prompted for when " +
			"--words is unset.",
		&importSeedCmd{app: a},
	}, {
		"import-xprv", "Import a wallet from an extended private key",
		"Encrypt an extended private key under the account password " +
			"and add it as a wallet sitting at --derivation.",
		&importXprvCmd{app: a},
	}, {
		"list", "List wallets", "List the wallets; the default is " +
			"marked with *.",
		&listCmd{app: a},
	}, {
		"set-default", "Select the default wallet",
		"Select the wallet used when --wallet is unset.",
		&setDefaultCmd{app: a},
	}, {
		"remove", "Remove a wallet",
		"Remove a wallet. Its secret is lost unless backed up.",
		&removeCmd{app: a},
	}, {
		"reveal", "Show a wallet's secret",
		"Print the mnemonic or extended private key of a wallet.",
		&revealCmd{app: a},
	}, {
		"xpub", "Export an extended public key",
		"Print the master fingerprint and the extended public key at " +
			"the wallet's derivation extended by --path.",
		&xpubCmd{app: a},
	}, {
		"details", "Summarize a PSBT",
		"Print the txid, fee and totals of a PSBT. The PSBT is read " +
			"from stdin when --psbt is unset.",
		&detailsCmd{app: a},
	}, {
		"sign", "Sign PSBTs",
		"Sign one or more PSBTs with a wallet and print them in the " +
			"same order. The PSBT is read from stdin when --psbt is " +
			"unset.",
		&signCmd{app: a},
	}, {
		"approve", "Review and sign a signing request",
		"Decode a request {\"psbt\", \"request_type\", \"amount\"}, " +
			"show its details, and sign it once confirmed. The " +
			"request is read from stdin when --request is unset.",
		&approveCmd{app: a},
	}, {
		"network", "Show or select the network",
		"Print the saved network, or save a new one when given.",
		&networkCmd{app: a},
	}}

	for _, c := range commands {
		_, err := parser.AddCommand(c.name, c.short, c.long, c.data)
		if err != nil {
			return err
		}
	}

	parser.CommandHandler = a.execute

	return nil
}

type createCmd struct {
	app *app

	Name string `long:"name" description:"Account name" required:"true"`
}

func (c *createCmd) Execute(_ []string) error {
	pass, confirm, err := c.app.newPassword()
	if err != nil {
		return err
	}

	err = c.app.user.CreateAccount(c.Name, pass, confirm)
	if err != nil {
		return err
	}

	if err := c.app.user.Save(c.app.ctx); err != nil {
		return err
	}

	c.app.printf("Account %q created", c.Name)

	return nil
}

type generateSeedCmd struct {
	app *app
}

func (c *generateSeedCmd) Execute(_ []string) error {
	words, err := vault.GenerateSeed()
	if err != nil {
		return err
	}

	c.app.printf("%s", words)

	return nil
}

type importSeedCmd struct {
	app *app

	Name  string `long:"name" description:"Wallet name" required:"true"`
	Words string `long:"words" description:"Mnemonic words" default-mask:"-"`
}

func (c *importSeedCmd) Execute(_ []string) error {
	if err := c.app.requireAccount(); err != nil {
		return err
	}

	words := c.Words
	if words == "" {
		var err error
		words, err = c.app.prompt.readSecret("Seed words: ")
		if err != nil {
			return err
		}
	}

	pass, err := c.app.password()
	if err != nil {
		return err
	}

	if _, err := c.app.user.ImportSeed(c.Name, words, pass); err != nil {
		return err
	}

	if err := c.app.user.Save(c.app.ctx); err != nil {
		return err
	}

	c.app.printf("Imported wallet %q", c.Name)

	return nil
}

type importXprvCmd struct {
	app *app

	Name       string `long:"name" description:"Wallet name" required:"true"`
	Xprv       string `long:"xprv" description:"Extended private key" default-mask:"-"`
	Derivation string `long:"derivation" description:"Path at which the key sits, e.g. m/84'/0'/0'" default:"m"`
}

func (c *importXprvCmd) Execute(_ []string) error {
	if err := c.app.requireAccount(); err != nil {
		return err
	}

	xprv := c.Xprv
	if xprv == "" {
		var err error
		xprv, err = c.app.prompt.readSecret("Extended private key: ")
		if err != nil {
			return err
		}
	}

	pass, err := c.app.password()
	if err != nil {
		return err
	}

	_, err = c.app.user.ImportExtendedKey(c.Name, xprv, c.Derivation, pass)
	if err != nil {
		return err
	}

	if err := c.app.user.Save(c.app.ctx); err != nil {
		return err
	}

	c.app.printf("Imported wallet %q", c.Name)

	return nil
}

type listCmd struct {
	app *app
}

func (c *listCmd) Execute(_ []string) error {
	names := c.app.user.WalletNames()
	if len(names) == 0 {
		c.app.printf("No wallets")
		return nil
	}

	def, _ := c.app.user.DefaultWallet()
	for _, name := range names {
		w, err := c.app.user.Wallet(name)
		if err != nil {
			return err
		}

		marker := " "
		if name == def {
			marker = "*"
		}

		c.app.printf("%s %s\t%v\t%v", marker, name, w.Kind(),
			w.Derivation())
	}

	return nil
}

type walletArg struct {
	Name string `positional-arg-name:"wallet"`
}

type setDefaultCmd struct {
	app *app

	Args walletArg `positional-args:"yes" required:"yes"`
}

func (c *setDefaultCmd) Execute(_ []string) error {
	if err := c.app.user.SetDefaultWallet(c.Args.Name); err != nil {
		return err
	}

	if err := c.app.user.Save(c.app.ctx); err != nil {
		return err
	}

	c.app.printf("Default wallet is %q", c.Args.Name)

	return nil
}

type removeCmd struct {
	app *app

	Args walletArg `positional-args:"yes" required:"yes"`
}

func (c *removeCmd) Execute(_ []string) error {
	pass, err := c.app.password()
	if err != nil {
		return err
	}

	if err := c.app.user.VerifyPassword(pass); err != nil {
		return err
	}

	if err := c.app.user.RemoveWallet(c.Args.Name); err != nil {
		return err
	}

	if err := c.app.user.Save(c.app.ctx); err != nil {
		return err
	}

	c.app.printf("Removed wallet %q", c.Args.Name)

	return nil
}

type revealCmd struct {
	app *app

	Wallet string `short:"w" long:"wallet" description:"Wallet name; the default wallet when unset"`
}

func (c *revealCmd) Execute(_ []string) error {
	pass, err := c.app.password()
	if err != nil {
		return err
	}

	secret, err := c.app.user.RevealSecret(c.Wallet, pass)
	if err != nil {
		return err
	}

	c.app.printf("%s", secret)

	return nil
}

type xpubCmd struct {
	app *app

	Wallet string `short:"w" long:"wallet" description:"Wallet name; the default wallet when unset"`
	Path   string `long:"path" description:"Path below the wallet's derivation, e.g. m/84'/0'/0' for a mnemonic wallet" default:"m"`
	QRFile string `long:"qr" description:"Also write the xpub as a QR code PNG to this file"`
	ShowQR bool   `long:"showqr" description:"Also print the xpub as a QR code on the terminal"`
}

// qrSize is the side of the PNG QR code in pixels.
const qrSize = 512

func (c *xpubCmd) Execute(_ []string) error {
	suffix, err := keychain.ParsePath(c.Path)
	if err != nil {
		return err
	}

	net, err := c.app.network()
	if err != nil {
		return err
	}

	pass, err := c.app.password()
	if err != nil {
		return err
	}

	fp, full, xpub, err := c.app.user.ExportXPub(c.Wallet, suffix, pass,
		net)
	if err != nil {
		return err
	}

	// Key origin in descriptor notation, e.g. [60f3a0b3/84'/1'/0'].
	origin := fp.String() + strings.TrimPrefix(full.String(), "m")

	c.app.printf("Fingerprint: %v", fp)
	c.app.printf("Path:        %v", full)
	c.app.printf("Xpub:        %s", xpub)
	c.app.printf("Key:         [%s]%s", origin, xpub)

	if c.QRFile != "" {
		err := qrcode.WriteFile(xpub, qrcode.Medium, qrSize, c.QRFile)
		if err != nil {
			return err
		}

		c.app.printf("QR code written to %s", c.QRFile)
	}

	if c.ShowQR {
		qr, err := qrcode.New(xpub, qrcode.Medium)
		if err != nil {
			return err
		}

		c.app.printf("%s", qr.ToSmallString(false))
	}

	return nil
}

type detailsCmd struct {
	app *app

	Psbt string `long:"psbt" description:"Base64 PSBT"`
}

func (c *detailsCmd) Execute(_ []string) error {
	psbtB64, err := c.app.inputOr(c.Psbt)
	if err != nil {
		return err
	}

	details, err := signer.DecodeDetails(psbtB64)
	if err != nil {
		return err
	}

	c.app.printDetails(details)

	return nil
}

// inputOr returns value, or the rest of the input when value is empty.
func (a *app) inputOr(value string) (string, error) {
	if value != "" {
		return value, nil
	}

	return a.prompt.readAll()
}

// printDetails prints a PSBT summary.
func (a *app) printDetails(d *signer.Details) {
	a.printf("Tx Id:   %v", d.TxID)
	a.printf("Inputs:  %d", d.NumInputs)
	a.printf("Outputs: %d", d.NumOutputs)
	a.printf("Total:   %v", d.OutputTotal)
	a.printf("Fee:     %d sats", int64(d.Fee))
}

type signCmd struct {
	app *app

	Wallet string   `short:"w" long:"wallet" description:"Wallet name; the default wallet when unset"`
	Psbts  []string `long:"psbt" description:"Base64 PSBT; may be repeated"`
}

func (c *signCmd) Execute(_ []string) error {
	psbts := c.Psbts
	if len(psbts) == 0 {
		psbtB64, err := c.app.prompt.readAll()
		if err != nil {
			return err
		}
		psbts = []string{psbtB64}
	}

	net, err := c.app.network()
	if err != nil {
		return err
	}

	pass, err := c.app.password()
	if err != nil {
		return err
	}

	if len(psbts) == 1 {
		signed, err := c.app.user.SignPsbt(c.Wallet, psbts[0], pass, net)
		if err != nil {
			return err
		}

		c.app.printf("%s", signed)

		return nil
	}

	signed, err := c.app.user.SignPsbts(c.app.ctx, c.Wallet, psbts, pass,
		net)
	if err != nil {
		return err
	}

	for _, s := range signed {
		c.app.printf("%s", s)
	}

	return nil
}

type approveCmd struct {
	app *app

	Wallet  string `short:"w" long:"wallet" description:"Wallet name; the default wallet when unset"`
	Request string `long:"request" description:"Request JSON"`
	Yes     bool   `short:"y" long:"yes" description:"Sign without asking for confirmation"`
}

func (c *approveCmd) Execute(_ []string) error {
	payload, err := c.app.inputOr(c.Request)
	if err != nil {
		return err
	}

	req, err := request.Decode([]byte(payload))
	if err != nil {
		return err
	}

	details, err := signer.DecodeDetails(req.Psbt)
	if err != nil {
		return err
	}

	c.app.printf("Operation: %v", req.Kind)
	c.app.printf("Amount:    %v", req.Amount)
	c.app.printDetails(details)

	if !c.Yes {
		ok, err := c.app.prompt.confirm("Sign")
		if err != nil {
			return err
		}
		if !ok {
			return psbterr.Errorf(psbterr.ErrValidation,
				"request rejected")
		}
	}

	net, err := c.app.network()
	if err != nil {
		return err
	}

	pass, err := c.app.password()
	if err != nil {
		return err
	}

	router, err := c.app.newRouter(c.Wallet, pass, net)
	if err != nil {
		return err
	}

	signed, err := router.Dispatch(c.app.ctx, req)
	if err != nil {
		return err
	}

	c.app.printf("%s", signed)

	return nil
}

// newRouter returns a router signing every request kind with the named
// wallet.
func (a *app) newRouter(wallet, password string,
	net keychain.Network) (*request.Router, error) {

	sign := func(_ context.Context, req *request.Request) (string, error) {
		log.Infof("Signing %v of %v with wallet %q", req.Kind,
			req.Amount, wallet)

		return a.user.SignPsbt(wallet, req.Psbt, password, net)
	}

	router := request.NewRouter()
	for _, kind := range []request.Kind{
		request.ChannelRequest, request.Withdrawal,
	} {
		if err := router.Register(kind, sign); err != nil {
			return nil, err
		}
	}

	return router, nil
}

type networkCmd struct {
	app *app

	Args struct {
		Network string `positional-arg-name:"network"`
	} `positional-args:"yes"`
}

func (c *networkCmd) Execute(_ []string) error {
	if c.Args.Network != "" {
		net, err := keychain.ParseNetwork(c.Args.Network)
		if err != nil {
			return err
		}

		c.app.settings.SetNetwork(net)
		if err := c.app.settings.Save(c.app.ctx); err != nil {
			return err
		}
	}

	c.app.printf("%v", c.app.settings.Network())

	return nil
}
