// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import "errors"

var (
	// ErrNilDB is returned when a nil database handle is supplied to a
	// store constructor.
	ErrNilDB = errors.New("nil database handle")

	// ErrUnknownBackend is returned when an unknown backend is requested.
	ErrUnknownBackend = errors.New("unknown db backend")

	// errNoBucket is returned when the signer bucket is missing from an
	// opened walletdb database.
	errNoBucket = newError(ErrDatabase, "signer bucket not found", nil)
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrDatabase indicates a database error.
	ErrDatabase ErrorCode = iota

	// ErrMigration indicates the schema could not be brought up to date.
	ErrMigration
)

// Error identifies a database error. It has an error code and a descriptive
// message.
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

// newError creates an Error given a set of arguments.
func newError(c ErrorCode, desc string, err error) Error {
	return Error{Code: c, Desc: desc, Err: err}
}
