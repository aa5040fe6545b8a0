// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers from the user. Secrets are read without echo when
// the input is a terminal.
type prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, reader: bufio.NewReader(in), out: out}
}

// terminalFd returns the file descriptor of the input if it is a terminal.
func (p *prompter) terminalFd() (int, bool) {
	f, ok := p.in.(*os.File)
	if !ok {
		return 0, false
	}

	fd := int(f.Fd())

	return fd, term.IsTerminal(fd)
}

// readLine prints prompt and returns the next input line without its line
// ending.
func (p *prompter) readLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("unable to read input: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// readSecret prints prompt and reads a line without echoing it.
func (p *prompter) readSecret(prompt string) (string, error) {
	fd, ok := p.terminalFd()
	if !ok {
		return p.readLine(prompt)
	}

	fmt.Fprint(p.out, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("unable to read input: %w", err)
	}

	return string(secret), nil
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func (p *prompter) confirm(prompt string) (bool, error) {
	answer, err := p.readLine(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// readAll returns the rest of the input with surrounding whitespace
// removed.
func (p *prompter) readAll() (string, error) {
	data, err := io.ReadAll(p.reader)
	if err != nil {
		return "", fmt.Errorf("unable to read input: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}
