// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/cargoforge/registry/internal/blobstore"
	"github.com/cargoforge/registry/internal/index"
	"github.com/cargoforge/registry/internal/rerror"
	"github.com/cargoforge/registry/internal/store"
)

type fakeRemote struct{ tr *index.Tree }

func (r *fakeRemote) URL() string                                  { return "" }
func (r *fakeRemote) Refresh(ctx context.Context) error             { return nil }
func (r *fakeRemote) Tree() *index.Tree                             { return r.tr }
func (r *fakeRemote) CommitAndPush(ctx context.Context, msg string) error { return nil }

func newHarness(t *testing.T) (Dependencies, *store.Author) {
	t.Helper()
	db, err := store.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	blobs, err := blobstore.Open(context.Background(), "filesystem", t.TempDir(), "")
	if err != nil {
		t.Fatalf("blobstore.Open() error = %v", err)
	}
	deps := Dependencies{
		Store:  db,
		Blobs:  blobs,
		Remote: &fakeRemote{tr: index.NewTree(t.TempDir())},
	}
	a := &store.Author{Email: "a@example.com", Name: "a"}
	if err := store.CreateAuthor(db.Gorm(), a, "deadbeef"); err != nil {
		t.Fatalf("CreateAuthor() error = %v", err)
	}
	return deps, a
}

func publishTestCrate(t *testing.T, deps Dependencies, owner *store.Author, name, vers string) *store.Crate {
	t.Helper()
	tx := deps.Store.Gorm()
	c, err := store.GetCrateByCanonicalName(tx, store.Fold(name))
	if err != nil {
		t.Fatalf("GetCrateByCanonicalName() error = %v", err)
	}
	if c == nil {
		c, err = store.CreateCrate(tx, name, store.Fold(name), "", "", "")
		if err != nil {
			t.Fatalf("CreateCrate() error = %v", err)
		}
		if err := store.AddCrateAuthor(tx, c.ID, owner.ID); err != nil {
			t.Fatalf("AddCrateAuthor() error = %v", err)
		}
	}
	if err := deps.Remote.Tree().AddRecord(index.Record{Name: name, Vers: vers, Features: map[string][]string{}}); err != nil {
		t.Fatalf("AddRecord() error = %v", err)
	}
	if err := deps.Blobs.Put(context.Background(), blobstore.Key{Name: name, Version: vers, Kind: blobstore.KindCrate}, bytes.NewReader([]byte("tarball"))); err != nil {
		t.Fatalf("Blobs.Put() error = %v", err)
	}
	return c
}

func TestYankUnyank(t *testing.T) {
	deps, owner := newHarness(t)
	publishTestCrate(t, deps, owner, "widget", "0.1.0")

	if err := Yank(context.Background(), deps, "widget", "0.1.0", owner.ID); err != nil {
		t.Fatalf("Yank() error = %v", err)
	}
	records, _ := deps.Remote.Tree().AllRecords("widget")
	if !records[0].Yanked {
		t.Error("after Yank(), Yanked = false, want true")
	}
	if err := Unyank(context.Background(), deps, "widget", "0.1.0", owner.ID); err != nil {
		t.Fatalf("Unyank() error = %v", err)
	}
	records, _ = deps.Remote.Tree().AllRecords("widget")
	if records[0].Yanked {
		t.Error("after Unyank(), Yanked = true, want false")
	}
}

func TestYankNonOwnerRejected(t *testing.T) {
	deps, owner := newHarness(t)
	publishTestCrate(t, deps, owner, "widget", "0.1.0")
	err := Yank(context.Background(), deps, "widget", "0.1.0", owner.ID+999)
	var notOwned *rerror.CrateNotOwned
	if !errors.As(err, &notOwned) {
		t.Errorf("Yank() by non-owner error = %v, want *rerror.CrateNotOwned", err)
	}
}

func TestRemoveOwnersRefusesLastOwner(t *testing.T) {
	deps, owner := newHarness(t)
	publishTestCrate(t, deps, owner, "widget", "0.1.0")
	err := RemoveOwners(deps, "widget", owner.ID, []string{owner.Email})
	var lastOwner *rerror.LastOwner
	if !errors.As(err, &lastOwner) {
		t.Errorf("RemoveOwners(last owner) error = %v, want *rerror.LastOwner", err)
	}
}

func TestAddAndRemoveOwners(t *testing.T) {
	deps, owner := newHarness(t)
	publishTestCrate(t, deps, owner, "widget", "0.1.0")
	second := &store.Author{Email: "b@example.com", Name: "b"}
	if err := store.CreateAuthor(deps.Store.Gorm(), second, "cafebabe"); err != nil {
		t.Fatalf("CreateAuthor() error = %v", err)
	}

	if err := AddOwners(deps, "widget", owner.ID, []string{second.Email}); err != nil {
		t.Fatalf("AddOwners() error = %v", err)
	}
	owned, err := store.IsCrateAuthor(deps.Store.Gorm(), mustCrateID(t, deps, "widget"), second.ID)
	if err != nil || !owned {
		t.Errorf("IsCrateAuthor(second) = %v, %v, want true, nil", owned, err)
	}

	if err := RemoveOwners(deps, "widget", owner.ID, []string{owner.Email}); err != nil {
		t.Fatalf("RemoveOwners() error = %v", err)
	}
	owned, err = store.IsCrateAuthor(deps.Store.Gorm(), mustCrateID(t, deps, "widget"), owner.ID)
	if err != nil || owned {
		t.Errorf("IsCrateAuthor(owner) after removal = %v, %v, want false, nil", owned, err)
	}
}

func mustCrateID(t *testing.T, deps Dependencies, name string) uint {
	t.Helper()
	c, err := store.GetCrateByCanonicalName(deps.Store.Gorm(), store.Fold(name))
	if err != nil || c == nil {
		t.Fatalf("GetCrateByCanonicalName(%s) = %v, %v", name, c, err)
	}
	return c.ID
}

func TestTokenLifecycle(t *testing.T) {
	deps, owner := newHarness(t)
	tok, err := GenerateToken(deps, owner.ID, "ci")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	tokens, err := ListTokens(deps, owner.ID)
	if err != nil || len(tokens) != 1 {
		t.Fatalf("ListTokens() = %v, %v, want 1 token", tokens, err)
	}
	if err := RevokeToken(deps, owner.ID, tok.ID); err != nil {
		t.Fatalf("RevokeToken() error = %v", err)
	}
	tokens, err = ListTokens(deps, owner.ID)
	if err != nil || len(tokens) != 0 {
		t.Errorf("ListTokens() after revoke = %v, %v, want 0 tokens", tokens, err)
	}
}

func TestAuthorProfile(t *testing.T) {
	deps, owner := newHarness(t)
	got, err := AuthorProfile(deps, owner.ID)
	if err != nil {
		t.Fatalf("AuthorProfile() error = %v", err)
	}
	if got.Email != owner.Email {
		t.Errorf("AuthorProfile().Email = %q, want %q", got.Email, owner.Email)
	}

	_, err = AuthorProfile(deps, owner.ID+999)
	var notFound *rerror.AuthorNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("AuthorProfile(unknown id) error = %v, want *rerror.AuthorNotFound", err)
	}
}
