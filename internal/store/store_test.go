// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open("sqlite", path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return db
}

func TestCreateAndGetCrate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	err := db.Run(ctx, func(tx *gorm.DB) error {
		c, err := CreateCrate(tx, "widget", "widget", "a widget", "", "")
		if err != nil {
			return err
		}
		if c.ID == 0 {
			t.Error("CreateCrate() returned zero ID")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got, err := GetCrateByCanonicalName(db.Gorm(), "widget")
	if err != nil {
		t.Fatalf("GetCrateByCanonicalName() error = %v", err)
	}
	if got == nil || got.Name != "widget" {
		t.Errorf("GetCrateByCanonicalName() = %+v, want Name=widget", got)
	}
}

func TestGetCrateByCanonicalNameMissing(t *testing.T) {
	db := newTestDB(t)
	got, err := GetCrateByCanonicalName(db.Gorm(), "nonexistent")
	if err != nil {
		t.Fatalf("GetCrateByCanonicalName() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetCrateByCanonicalName() = %+v, want nil", got)
	}
}

func TestOwnershipLifecycle(t *testing.T) {
	db := newTestDB(t)
	tx := db.Gorm()
	c, err := CreateCrate(tx, "widget", "widget", "", "", "")
	if err != nil {
		t.Fatalf("CreateCrate() error = %v", err)
	}
	a := &Author{Email: "a@example.com", Name: "a"}
	if err := CreateAuthor(tx, a, "deadbeef"); err != nil {
		t.Fatalf("CreateAuthor() error = %v", err)
	}
	if err := AddCrateAuthor(tx, c.ID, a.ID); err != nil {
		t.Fatalf("AddCrateAuthor() error = %v", err)
	}
	owned, err := IsCrateAuthor(tx, c.ID, a.ID)
	if err != nil || !owned {
		t.Errorf("IsCrateAuthor() = %v, %v, want true, nil", owned, err)
	}
	count, err := CountCrateAuthors(tx, c.ID)
	if err != nil || count != 1 {
		t.Errorf("CountCrateAuthors() = %d, %v, want 1, nil", count, err)
	}
	if err := RemoveCrateAuthor(tx, c.ID, a.ID); err != nil {
		t.Fatalf("RemoveCrateAuthor() error = %v", err)
	}
	owned, err = IsCrateAuthor(tx, c.ID, a.ID)
	if err != nil || owned {
		t.Errorf("IsCrateAuthor() after removal = %v, %v, want false, nil", owned, err)
	}
}

func TestReplaceKeywords(t *testing.T) {
	db := newTestDB(t)
	tx := db.Gorm()
	c, err := CreateCrate(tx, "widget", "widget", "", "", "")
	if err != nil {
		t.Fatalf("CreateCrate() error = %v", err)
	}
	if err := ReplaceKeywords(tx, c.ID, []string{"gui", "widgets"}); err != nil {
		t.Fatalf("ReplaceKeywords() error = %v", err)
	}
	var count int64
	tx.Model(&CrateKeyword{}).Where("crate_id = ?", c.ID).Count(&count)
	if count != 2 {
		t.Errorf("keyword edges = %d, want 2", count)
	}
	// Replacing with a smaller set wholesale-replaces, not merges.
	if err := ReplaceKeywords(tx, c.ID, []string{"gui"}); err != nil {
		t.Fatalf("ReplaceKeywords() error = %v", err)
	}
	tx.Model(&CrateKeyword{}).Where("crate_id = ?", c.ID).Count(&count)
	if count != 1 {
		t.Errorf("keyword edges after replace = %d, want 1", count)
	}
}

func TestLinksCollision(t *testing.T) {
	db := newTestDB(t)
	tx := db.Gorm()
	c1, _ := CreateCrate(tx, "widget", "widget", "", "", "")
	c2, _ := CreateCrate(tx, "gadget", "gadget", "", "", "")
	if err := ClaimLinks(tx, c1.ID, "libwidget"); err != nil {
		t.Fatalf("ClaimLinks() error = %v", err)
	}
	owner, err := CheckLinksCollision(tx, c2.ID, "libwidget")
	if err != nil {
		t.Fatalf("CheckLinksCollision() error = %v", err)
	}
	if owner != c1.ID {
		t.Errorf("CheckLinksCollision() owner = %d, want %d", owner, c1.ID)
	}
	owner, err = CheckLinksCollision(tx, c1.ID, "libwidget")
	if err != nil {
		t.Fatalf("CheckLinksCollision() error = %v", err)
	}
	if owner != 0 {
		t.Errorf("CheckLinksCollision() self-claim owner = %d, want 0", owner)
	}
}

func TestTokenLifecycle(t *testing.T) {
	db := newTestDB(t)
	tx := db.Gorm()
	a := &Author{Email: "a@example.com", Name: "a"}
	if err := CreateAuthor(tx, a, "deadbeef"); err != nil {
		t.Fatalf("CreateAuthor() error = %v", err)
	}
	tok, err := CreateAuthorToken(tx, a.ID, "ci", "abc123")
	if err != nil {
		t.Fatalf("CreateAuthorToken() error = %v", err)
	}
	got, err := GetAuthorByToken(tx, "abc123")
	if err != nil || got == nil || got.ID != a.ID {
		t.Errorf("GetAuthorByToken() = %+v, %v, want author %d", got, err, a.ID)
	}
	if err := RevokeAuthorToken(tx, a.ID, tok.ID); err != nil {
		t.Fatalf("RevokeAuthorToken() error = %v", err)
	}
	got, err = GetAuthorByToken(tx, "abc123")
	if err != nil || got != nil {
		t.Errorf("GetAuthorByToken() after revoke = %+v, %v, want nil", got, err)
	}
}
