// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// psbtsigner is a password protected wallet for signing PSBTs with BIP32
// keys kept encrypted at rest.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	flags "github.com/jessevdk/go-flags"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.LookupEnv, os.Stdin, os.Stdout,
		os.Stderr)
	cancel()

	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Println(err)
			os.Exit(0)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses args and executes the selected command. Results are written to
// stdout and prompts to stderr. lookupEnv supplies the account password.
func run(ctx context.Context, args []string,
	lookupEnv func(string) (string, bool), stdin io.Reader, stdout,
	stderr io.Writer) error {

	cfg := defaultConfig()
	if pass, ok := lookupEnv(passwordEnv); ok {
		cfg.Password = pass
	}

	a := &app{
		ctx:    ctx,
		cfg:    cfg,
		out:    stdout,
		prompt: newPrompter(stdin, stderr),
	}

	return loadConfig(cfg, a.registerCommands, args)
}
