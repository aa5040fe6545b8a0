// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package psbterr defines the error taxonomy shared by the vault, key
// derivation, signing and storage packages.
package psbterr

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrParse indicates malformed user input: a mnemonic, an extended
	// key, a derivation path or a serialized blob.
	ErrParse ErrorCode = iota

	// ErrPsbtParse indicates the PSBT could not be decoded.
	ErrPsbtParse

	// ErrKeyDerivation indicates the password based key derivation
	// failed.
	ErrKeyDerivation

	// ErrEncryption indicates the AEAD cipher could not be initialised
	// or sealing failed.
	ErrEncryption

	// ErrDecryption indicates a wrong password or corrupted ciphertext.
	// The two cases are deliberately indistinguishable.
	ErrDecryption

	// ErrKeyFormat indicates the decrypted secret could not be turned
	// into a master key.
	ErrKeyFormat

	// ErrMissingWitnessData indicates an input lacks its witness script
	// or witness UTXO.
	ErrMissingWitnessData

	// ErrNoMatchingKey indicates an input carries no derivation hint for
	// the wallet's master fingerprint.
	ErrNoMatchingKey

	// ErrPathMismatch indicates a derivation path does not extend the
	// wallet's base derivation.
	ErrPathMismatch

	// ErrDerivation indicates a child key could not be derived, or the
	// derived key differs from the hinted one.
	ErrDerivation

	// ErrSignatureVerification indicates a freshly produced signature
	// failed to verify.
	ErrSignatureVerification

	// ErrWalletNotFound indicates an unknown wallet name.
	ErrWalletNotFound

	// ErrValidation indicates a request that violates a registry or
	// wallet invariant, such as a duplicate name.
	ErrValidation

	// ErrStorage indicates the backing store failed.
	ErrStorage
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrParse:                 "ErrParse",
	ErrPsbtParse:             "ErrPsbtParse",
	ErrKeyDerivation:         "ErrKeyDerivation",
	ErrEncryption:            "ErrEncryption",
	ErrDecryption:            "ErrDecryption",
	ErrKeyFormat:             "ErrKeyFormat",
	ErrMissingWitnessData:    "ErrMissingWitnessData",
	ErrNoMatchingKey:         "ErrNoMatchingKey",
	ErrPathMismatch:          "ErrPathMismatch",
	ErrDerivation:            "ErrDerivation",
	ErrSignatureVerification: "ErrSignatureVerification",
	ErrWalletNotFound:        "ErrWalletNotFound",
	ErrValidation:            "ErrValidation",
	ErrStorage:               "ErrStorage",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}

	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error identifies a signer error. It has an error code, a descriptive
// message and an optional underlying error.
type Error struct {
	Code ErrorCode
	Desc string
	Err  error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Desc + ": " + e.Err.Error()
	}

	return e.Desc
}

// Unwrap returns the underlying error, if any.
func (e Error) Unwrap() error {
	return e.Err
}

// New creates an Error given a set of arguments.
func New(c ErrorCode, desc string, err error) Error {
	return Error{Code: c, Desc: desc, Err: err}
}

// Errorf creates an Error with a formatted description and no underlying
// error.
func Errorf(c ErrorCode, format string, args ...any) Error {
	return Error{Code: c, Desc: fmt.Sprintf(format, args...)}
}

// Decryption returns the generic error used for every failed decryption.
// The cause is not recorded so that callers cannot tell a wrong password
// from tampered data.
func Decryption() Error {
	return Error{
		Code: ErrDecryption,
		Desc: "incorrect password or corrupted data",
	}
}

// IsError returns whether err is, or wraps, an Error with the given code.
// Errors nested inside an Error of another code are matched too.
func IsError(err error, code ErrorCode) bool {
	var e Error
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}

		err = e.Err
	}

	return false
}
