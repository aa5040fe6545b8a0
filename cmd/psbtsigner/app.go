// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/psbtsigner/internal/db"
	"github.com/btcsuite/psbtsigner/keychain"
	"github.com/btcsuite/psbtsigner/psbterr"
	"github.com/btcsuite/psbtsigner/storage"
	flags "github.com/jessevdk/go-flags"
)

// app is the state shared by all commands.
type app struct {
	ctx    context.Context
	cfg    *config
	out    io.Writer
	prompt *prompter

	backend  db.Backend
	user     *storage.UserStorage
	settings *storage.SettingsStorage
}

// setup initializes logging, opens the backend and loads the registry and
// the settings.
func (a *app) setup() error {
	cfg := a.cfg
	cfg.AppDataDir = cleanAndExpandPath(cfg.AppDataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	if cfg.DebugLevel == "show" {
		fmt.Fprintln(a.out, "Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	if err := os.MkdirAll(cfg.AppDataDir, 0700); err != nil {
		return fmt.Errorf("unable to create data directory: %w", err)
	}

	logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
	err := initLogRotator(logFile, cfg.MaxLogFileSize, cfg.MaxLogFiles)
	if err != nil {
		return err
	}

	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}

	backend, err := db.Open(a.ctx, cfg.dbConfig())
	if err != nil {
		return err
	}
	a.backend = backend

	a.user, err = storage.Read(a.ctx, backend)
	if err != nil {
		return err
	}

	a.settings, err = storage.ReadSettings(a.ctx, backend)
	if err != nil {
		return err
	}

	log.Debugf("Loaded %d wallet(s) from %s backend",
		len(a.user.WalletNames()), cfg.DBBackend)

	return nil
}

// close releases the backend and flushes the log.
func (a *app) close() {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			log.Errorf("Unable to close backend: %v", err)
		}
	}

	closeLogRotator()
}

// execute is the parser's command handler. It wraps every command in setup
// and teardown.
func (a *app) execute(command flags.Commander, args []string) error {
	if err := a.setup(); err != nil {
		a.close()
		return err
	}
	defer a.close()

	return command.Execute(args)
}

// network returns the network from the command line or, failing that, the
// saved setting.
func (a *app) network() (keychain.Network, error) {
	net, ok, err := a.cfg.network()
	if err != nil {
		return 0, err
	}
	if ok {
		return net, nil
	}

	return a.settings.Network(), nil
}

// password returns the account password from the options or the prompt.
func (a *app) password() (string, error) {
	if a.cfg.Password != "" {
		return a.cfg.Password, nil
	}

	return a.prompt.readSecret("Password: ")
}

// newPassword returns a password entered twice.
func (a *app) newPassword() (string, string, error) {
	if a.cfg.Password != "" {
		return a.cfg.Password, a.cfg.Password, nil
	}

	pass, err := a.prompt.readSecret("New password: ")
	if err != nil {
		return "", "", err
	}

	confirm, err := a.prompt.readSecret("Confirm password: ")
	if err != nil {
		return "", "", err
	}

	return pass, confirm, nil
}

// requireAccount fails unless an account has been created.
func (a *app) requireAccount() error {
	if !a.user.HasPassword() {
		return psbterr.Errorf(psbterr.ErrValidation,
			"no account, run the create command first")
	}

	return nil
}

// printf writes a line of command output.
func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}
