// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package auth implements the authentication boundary: token
// issuance/lookup and ownership checks that gate publication and yank.
// Authentication variants (local password, external identity providers)
// collapse to the same invariant on entry to the core: an author id.
package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"

	"github.com/pkg/errors"
)

// tokenVisibleChars is the number of hex characters of the SHA-512
// digest kept as the visible registry token; the remainder of the
// digest is discarded, not stored.
const tokenVisibleChars = 25

// GenerateToken produces 16 bytes from a secure RNG, SHA-512-digests
// them, hex-encodes the digest, and keeps the first 25 characters.
func GenerateToken() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, "generating token entropy")
	}
	sum := sha512.Sum512(raw)
	return hex.EncodeToString(sum[:])[:tokenVisibleChars], nil
}
