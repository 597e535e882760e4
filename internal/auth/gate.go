// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"gorm.io/gorm"

	"github.com/cargoforge/registry/internal/rerror"
	"github.com/cargoforge/registry/internal/store"
)

// GetAuthor resolves a bearer token to its author, a token lookup in
// author_tokens joined to authors. An unrecognized or missing token is
// InvalidToken.
func GetAuthor(tx *gorm.DB, token string) (*store.Author, error) {
	if token == "" {
		return nil, &rerror.InvalidToken{}
	}
	a, err := store.GetAuthorByToken(tx, token)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &rerror.InvalidToken{}
	}
	return a, nil
}

// IsCrateAuthor reports whether authorID owns the crate with the given
// canonical name. A nonexistent crate is treated as unowned, not an
// error; callers that need crate existence should check separately.
func IsCrateAuthor(tx *gorm.DB, canonicalName string, authorID uint) (bool, error) {
	c, err := store.GetCrateByCanonicalName(tx, canonicalName)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}
	return store.IsCrateAuthor(tx, c.ID, authorID)
}
