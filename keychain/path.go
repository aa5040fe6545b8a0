// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/psbtsigner/psbterr"
)

// Path is a BIP32 derivation path. Hardened indexes carry the
// hdkeychain.HardenedKeyStart offset, matching the layout of
// psbt.Bip32Derivation.Bip32Path.
type Path []uint32

// RootPath is the empty path "m".
var RootPath = Path{}

// ParsePath parses a derivation path such as "m/84'/1'/0'/0/5". The leading
// "m" is optional so that relative suffixes like "0/5" parse too. Hardened
// segments may be marked with ', h or H. An empty string is the root.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)

	parts := strings.Split(s, "/")
	if parts[0] == "m" || parts[0] == "M" || s == "" {
		parts = parts[1:]
	}

	path := make(Path, 0, len(parts))
	for _, part := range parts {
		hardened := false
		switch {
		case strings.HasSuffix(part, "'"),
			strings.HasSuffix(part, "h"),
			strings.HasSuffix(part, "H"):

			hardened = true
			part = part[:len(part)-1]
		}

		index, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, psbterr.New(psbterr.ErrParse,
				fmt.Sprintf("invalid derivation path %q", s), err)
		}

		if index >= hdkeychain.HardenedKeyStart {
			return nil, psbterr.Errorf(psbterr.ErrParse,
				"derivation index %d out of range in %q", index, s)
		}

		if hardened {
			index += hdkeychain.HardenedKeyStart
		}
		path = append(path, uint32(index))
	}

	return path, nil
}

// String returns the canonical "m/..." form of the path using ' for hardened
// segments.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString("m")

	for _, index := range p {
		b.WriteString("/")
		if index >= hdkeychain.HardenedKeyStart {
			b.WriteString(strconv.FormatUint(
				uint64(index-hdkeychain.HardenedKeyStart), 10,
			))
			b.WriteString("'")

			continue
		}

		b.WriteString(strconv.FormatUint(uint64(index), 10))
	}

	return b.String()
}

// Child returns a new path extending p with the given indexes.
func (p Path) Child(indexes ...uint32) Path {
	child := make(Path, 0, len(p)+len(indexes))
	child = append(child, p...)

	return append(child, indexes...)
}

// HasPrefix reports whether base is a prefix of p.
func (p Path) HasPrefix(base Path) bool {
	if len(base) > len(p) {
		return false
	}

	for i := range base {
		if p[i] != base[i] {
			return false
		}
	}

	return true
}

// PartialPath returns the suffix of full that remains after base. It fails
// with ErrPathMismatch when base is longer than full or full does not start
// with base.
func PartialPath(base, full Path) (Path, error) {
	if len(base) > len(full) {
		return nil, psbterr.Errorf(psbterr.ErrPathMismatch,
			"base derivation %v is longer than %v", base, full)
	}

	if !full.HasPrefix(base) {
		return nil, psbterr.Errorf(psbterr.ErrPathMismatch,
			"derivation %v does not extend %v", full, base)
	}

	partial := make(Path, len(full)-len(base))
	copy(partial, full[len(base):])

	return partial, nil
}
