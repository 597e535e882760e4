// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/cargoforge/registry/internal/auth"
	"github.com/cargoforge/registry/internal/rerror"
	"github.com/cargoforge/registry/internal/store"
)

func requireOwnership(deps Dependencies, name string, authorID uint) (*store.Crate, error) {
	canonical := store.Fold(name)
	c, err := store.GetCrateByCanonicalName(deps.Store.Gorm(), canonical)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &rerror.CrateNotFound{Name: name}
	}
	owned, err := store.IsCrateAuthor(deps.Store.Gorm(), c.ID, authorID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, &rerror.CrateNotOwned{Name: name, Author: fmt.Sprintf("#%d", authorID)}
	}
	return c, nil
}

// Yank canonicalizes name, asserts ownership, flips the yanked flag on
// vers, and pushes the index.
func Yank(ctx context.Context, deps Dependencies, name, vers string, authorID uint) error {
	c, err := requireOwnership(deps, name, authorID)
	if err != nil {
		return err
	}
	if err := deps.Remote.Tree().Yank(c.Name, vers); err != nil {
		return err
	}
	msg := fmt.Sprintf("Yanking crate `%s#%s`", c.Name, vers)
	return errors.Wrap(deps.Remote.CommitAndPush(ctx, msg), "pushing yank")
}

// Unyank is Yank's inverse.
func Unyank(ctx context.Context, deps Dependencies, name, vers string, authorID uint) error {
	c, err := requireOwnership(deps, name, authorID)
	if err != nil {
		return err
	}
	if err := deps.Remote.Tree().Unyank(c.Name, vers); err != nil {
		return err
	}
	msg := fmt.Sprintf("Unyanking crate `%s#%s`", c.Name, vers)
	return errors.Wrap(deps.Remote.CommitAndPush(ctx, msg), "pushing unyank")
}

// AddOwners verifies the caller is an owner, then inserts the set
// difference between requested emails and existing owners. Emails that
// do not map to a registered author are silently ignored.
func AddOwners(deps Dependencies, name string, authorID uint, emails []string) error {
	c, err := requireOwnership(deps, name, authorID)
	if err != nil {
		return err
	}
	tx := deps.Store.Gorm()
	for _, email := range emails {
		a, err := store.GetAuthorByEmail(tx, email)
		if err != nil {
			return err
		}
		if a == nil {
			continue
		}
		owned, err := store.IsCrateAuthor(tx, c.ID, a.ID)
		if err != nil {
			return err
		}
		if owned {
			continue
		}
		if err := store.AddCrateAuthor(tx, c.ID, a.ID); err != nil {
			return err
		}
	}
	return nil
}

// RemoveOwners verifies the caller is an owner, then deletes the
// intersection of requested emails and existing owners, refusing if the
// removal would leave the crate with zero owners.
func RemoveOwners(deps Dependencies, name string, authorID uint, emails []string) error {
	c, err := requireOwnership(deps, name, authorID)
	if err != nil {
		return err
	}
	tx := deps.Store.Gorm()
	var toRemove []uint
	for _, email := range emails {
		a, err := store.GetAuthorByEmail(tx, email)
		if err != nil {
			return err
		}
		if a == nil {
			continue
		}
		owned, err := store.IsCrateAuthor(tx, c.ID, a.ID)
		if err != nil {
			return err
		}
		if owned {
			toRemove = append(toRemove, a.ID)
		}
	}
	count, err := store.CountCrateAuthors(tx, c.ID)
	if err != nil {
		return err
	}
	if int64(len(toRemove)) >= count {
		return &rerror.LastOwner{Name: name}
	}
	for _, id := range toRemove {
		if err := store.RemoveCrateAuthor(tx, c.ID, id); err != nil {
			return err
		}
	}
	return nil
}

// GenerateToken issues a new token for authorID, unique by name per
// author.
func GenerateToken(deps Dependencies, authorID uint, name string) (*store.AuthorToken, error) {
	tok, err := auth.GenerateToken()
	if err != nil {
		return nil, err
	}
	return store.CreateAuthorToken(deps.Store.Gorm(), authorID, name, tok)
}

// RevokeToken deletes a token by id, scoped to authorID so a caller can
// only revoke their own tokens.
func RevokeToken(deps Dependencies, authorID, tokenID uint) error {
	return store.RevokeAuthorToken(deps.Store.Gorm(), authorID, tokenID)
}

// ListTokens returns every token owned by authorID; a bearer may only
// inspect their own tokens, enforced by callers passing their own id.
func ListTokens(deps Dependencies, authorID uint) ([]store.AuthorToken, error) {
	return store.ListAuthorTokens(deps.Store.Gorm(), authorID)
}
