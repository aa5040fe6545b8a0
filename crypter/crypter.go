// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package crypter implements the password based encryption used to protect
// wallet secrets at rest: Argon2id turns a password and salt into a 256-bit
// key, and AES-256-GCM seals the secret under that key and a per-wallet
// nonce.
package crypter

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"github.com/btcsuite/psbtsigner/internal/zero"
	"github.com/btcsuite/psbtsigner/psbterr"
	"golang.org/x/crypto/argon2"
)

const (
	// SaltSize is the size in bytes of the Argon2id salt.
	SaltSize = 32

	// NonceSize is the size in bytes of the AES-GCM nonce.
	NonceSize = 12

	// KeySize is the size in bytes of the derived AES-256 key.
	KeySize = 32

	// Argon2id cost parameters. Changing any of them makes every existing
	// ciphertext undecryptable.
	argonTime    = 8
	argonMemory  = 16 * 1024
	argonThreads = 8
)

// Salt is the per-wallet Argon2id salt.
type Salt [SaltSize]byte

// Nonce is the per-wallet AES-GCM nonce.
type Nonce [NonceSize]byte

// Key is a derived symmetric key.
type Key [KeySize]byte

// Zero clears the key material.
func (k *Key) Zero() {
	zero.Bytea32((*[32]byte)(k))
}

// GenerateSalt returns a fresh random salt.
func GenerateSalt() (Salt, error) {
	var s Salt
	if _, err := rand.Read(s[:]); err != nil {
		return s, psbterr.New(
			psbterr.ErrKeyDerivation, "unable to generate salt", err,
		)
	}

	return s, nil
}

// GenerateNonce returns a fresh random nonce.
func GenerateNonce() (Nonce, error) {
	var n Nonce
	if _, err := rand.Read(n[:]); err != nil {
		return n, psbterr.New(
			psbterr.ErrEncryption, "unable to generate nonce", err,
		)
	}

	return n, nil
}

// DeriveKey stretches password with Argon2id under the given salt. The
// result is deterministic for a (salt, password) pair.
func DeriveKey(salt Salt, password string) Key {
	pw := []byte(password)
	defer zero.Bytes(pw)

	raw := argon2.IDKey(
		pw, salt[:], argonTime, argonMemory, argonThreads, KeySize,
	)
	defer zero.Bytes(raw)

	var k Key
	copy(k[:], raw)

	return k
}

func newGCM(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under key and nonce with no associated data and
// returns the base64 (standard, padded) encoding of ciphertext||tag.
func Encrypt(key Key, nonce Nonce, plaintext []byte) (string, error) {
	aead, err := newGCM(key)
	if err != nil {
		return "", psbterr.New(
			psbterr.ErrEncryption, "unable to create cipher", err,
		)
	}

	sealed := aead.Seal(nil, nonce[:], plaintext, nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Bad base64, a failed tag check and a plaintext
// that is not valid UTF-8 all produce the same generic ErrDecryption.
func Decrypt(key Key, nonce Nonce, ciphertext string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, psbterr.Decryption()
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, psbterr.Decryption()
	}

	plaintext, err := aead.Open(nil, nonce[:], sealed, nil)
	if err != nil {
		return nil, psbterr.Decryption()
	}

	if !utf8.Valid(plaintext) {
		zero.Bytes(plaintext)
		return nil, psbterr.Decryption()
	}

	return plaintext, nil
}

// Seal derives the key for password and salt and encrypts plaintext with it.
// The derived key is cleared before returning.
func Seal(salt Salt, nonce Nonce, password string,
	plaintext []byte) (string, error) {

	key := DeriveKey(salt, password)
	defer key.Zero()

	ct, err := Encrypt(key, nonce, plaintext)
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}

	return ct, nil
}

// Open derives the key for password and salt and decrypts ciphertext with
// it. The derived key is cleared before returning.
func Open(salt Salt, nonce Nonce, password, ciphertext string) ([]byte,
	error) {

	key := DeriveKey(salt, password)
	defer key.Zero()

	return Decrypt(key, nonce, ciphertext)
}
