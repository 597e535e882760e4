// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// Iteration counts and output length for the two-stage PBKDF2-HMAC-SHA512
// scheme matching the legacy web front-end this registry is compatible
// with.
const (
	clientIterations = 5_000
	serverIterations = 100_000
	hashLength       = 64
	saltLength       = 64
)

// PreHash performs the client-side (or "API register" path) first stage:
// PBKDF2-HMAC-SHA512 over password, keyed by email as salt, 5,000
// iterations, producing a 64-byte intermediate.
func PreHash(password, email string) []byte {
	return pbkdf2.Key([]byte(password), []byte(email), clientIterations, hashLength, sha512.New)
}

// NewSalt generates a fresh per-author PBKDF2 salt, hex-encoded.
func NewSalt() (string, error) {
	raw := make([]byte, saltLength)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, "generating salt entropy")
	}
	return hex.EncodeToString(raw), nil
}

// DeriveStoredHash performs the server-side second stage: PBKDF2-HMAC-
// SHA512 over the client pre-hash, keyed by the per-user salt, 100,000
// iterations, producing the 64-byte hash persisted on the author row.
func DeriveStoredHash(preHash []byte, saltHex string) (string, error) {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", errors.Wrap(err, "decoding salt")
	}
	derived := pbkdf2.Key(preHash, salt, serverIterations, hashLength, sha512.New)
	return hex.EncodeToString(derived), nil
}

// VerifyPassword re-derives the stored hash from password/email/salt and
// compares it against stored in constant time.
func VerifyPassword(password, email, saltHex, stored string) (bool, error) {
	derived, err := DeriveStoredHash(PreHash(password, email), saltHex)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(derived), []byte(stored)) == 1, nil
}
