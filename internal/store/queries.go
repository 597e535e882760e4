// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var onConflictIgnore = clause.OnConflict{DoNothing: true}

// GetCrateByCanonicalName returns the crate row, or nil if none exists.
func GetCrateByCanonicalName(tx *gorm.DB, canonicalName string) (*Crate, error) {
	var c Crate
	err := tx.Where("canonical_name = ?", canonicalName).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying crate")
	}
	return &c, nil
}

// CreateCrate inserts a new crate row with fresh timestamps.
func CreateCrate(tx *gorm.DB, name, canonicalName, description, repository, documentation string) (*Crate, error) {
	now := timeNow()
	c := &Crate{
		Name:          name,
		CanonicalName: canonicalName,
		Description:   description,
		Repository:    repository,
		Documentation: documentation,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.Create(c).Error; err != nil {
		return nil, errors.Wrap(err, "creating crate")
	}
	return c, nil
}

// UpdateCrateMeta updates the mutable descriptive fields of an existing
// crate and bumps UpdatedAt.
func UpdateCrateMeta(tx *gorm.DB, crateID uint, description, repository, documentation string) error {
	err := tx.Model(&Crate{}).Where("id = ?", crateID).Updates(map[string]any{
		"description":   description,
		"repository":    repository,
		"documentation": documentation,
		"updated_at":    timeNow(),
	}).Error
	return errors.Wrap(err, "updating crate")
}

// IncrementDownloads bumps the crate's download counter by one.
func IncrementDownloads(tx *gorm.DB, crateID uint) error {
	err := tx.Model(&Crate{}).Where("id = ?", crateID).UpdateColumn("downloads", gorm.Expr("downloads + 1")).Error
	return errors.Wrap(err, "incrementing downloads")
}

// IsCrateAuthor reports whether authorID owns crateID.
func IsCrateAuthor(tx *gorm.DB, crateID, authorID uint) (bool, error) {
	var count int64
	err := tx.Model(&CrateAuthor{}).Where("crate_id = ? AND author_id = ?", crateID, authorID).Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "querying ownership")
	}
	return count > 0, nil
}

// AddCrateAuthor inserts the ownership edge.
func AddCrateAuthor(tx *gorm.DB, crateID, authorID uint) error {
	err := tx.Create(&CrateAuthor{CrateID: crateID, AuthorID: authorID}).Error
	return errors.Wrap(err, "adding crate author")
}

// RemoveCrateAuthor deletes the ownership edge.
func RemoveCrateAuthor(tx *gorm.DB, crateID, authorID uint) error {
	err := tx.Where("crate_id = ? AND author_id = ?", crateID, authorID).Delete(&CrateAuthor{}).Error
	return errors.Wrap(err, "removing crate author")
}

// CountCrateAuthors returns the number of owners of crateID.
func CountCrateAuthors(tx *gorm.DB, crateID uint) (int64, error) {
	var count int64
	err := tx.Model(&CrateAuthor{}).Where("crate_id = ?", crateID).Count(&count).Error
	return count, errors.Wrap(err, "counting crate authors")
}

// ListCrateAuthors returns the authors owning crateID.
func ListCrateAuthors(tx *gorm.DB, crateID uint) ([]Author, error) {
	var authors []Author
	err := tx.Joins("JOIN crate_authors ON crate_authors.author_id = authors.id").
		Where("crate_authors.crate_id = ?", crateID).Find(&authors).Error
	return authors, errors.Wrap(err, "listing crate authors")
}

// ReplaceKeywords deletes-then-inserts the crate's keyword edges, upserting
// keyword rows by name (ignoring duplicates).
func ReplaceKeywords(tx *gorm.DB, crateID uint, names []string) error {
	if err := tx.Where("crate_id = ?", crateID).Delete(&CrateKeyword{}).Error; err != nil {
		return errors.Wrap(err, "clearing keywords")
	}
	for _, name := range names {
		var kw Keyword
		err := tx.Where("name = ?", name).First(&kw).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			kw = Keyword{Name: name}
			if err := tx.Clauses(onConflictIgnore).Create(&kw).Error; err != nil {
				return errors.Wrapf(err, "upserting keyword %q", name)
			}
			if kw.ID == 0 {
				if err := tx.Where("name = ?", name).First(&kw).Error; err != nil {
					return errors.Wrapf(err, "reloading keyword %q", name)
				}
			}
		} else if err != nil {
			return errors.Wrapf(err, "querying keyword %q", name)
		}
		if err := tx.Clauses(onConflictIgnore).Create(&CrateKeyword{CrateID: crateID, KeywordID: kw.ID}).Error; err != nil {
			return errors.Wrapf(err, "linking keyword %q", name)
		}
	}
	return nil
}

// ReplaceCategories deletes-then-inserts the crate's category edges,
// silently dropping tags that do not match a known category.
func ReplaceCategories(tx *gorm.DB, crateID uint, tags []string) error {
	if err := tx.Where("crate_id = ?", crateID).Delete(&CrateCategory{}).Error; err != nil {
		return errors.Wrap(err, "clearing categories")
	}
	for _, tag := range tags {
		var cat Category
		err := tx.Where("tag = ?", tag).First(&cat).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue // unknown tags are silently dropped, per spec
		}
		if err != nil {
			return errors.Wrapf(err, "querying category %q", tag)
		}
		if err := tx.Clauses(onConflictIgnore).Create(&CrateCategory{CrateID: crateID, CategoryID: cat.ID}).Error; err != nil {
			return errors.Wrapf(err, "linking category %q", tag)
		}
	}
	return nil
}

// ReplaceBadges deletes-then-inserts the crate's badge rows.
func ReplaceBadges(tx *gorm.DB, crateID uint, badges []Badge) error {
	if err := tx.Where("crate_id = ?", crateID).Delete(&Badge{}).Error; err != nil {
		return errors.Wrap(err, "clearing badges")
	}
	for i := range badges {
		badges[i].CrateID = crateID
		badges[i].ID = 0
		if err := tx.Create(&badges[i]).Error; err != nil {
			return errors.Wrap(err, "inserting badge")
		}
	}
	return nil
}

// EncodeBadgeAttributes is a convenience for building Badge.Attributes.
func EncodeBadgeAttributes(attrs map[string]string) (string, error) {
	b, err := json.Marshal(attrs)
	return string(b), errors.Wrap(err, "encoding badge attributes")
}

// CheckLinksCollision returns the owning crate ID if links is already
// claimed by a crate other than crateID, or 0 if unclaimed.
func CheckLinksCollision(tx *gorm.DB, crateID uint, links string) (uint, error) {
	if links == "" {
		return 0, nil
	}
	var cl CrateLink
	err := tx.Where("links = ?", links).First(&cl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "querying links")
	}
	if cl.CrateID == crateID {
		return 0, nil
	}
	return cl.CrateID, nil
}

// ClaimLinks records crateID's claim on links, if links is non-empty.
func ClaimLinks(tx *gorm.DB, crateID uint, links string) error {
	if links == "" {
		return nil
	}
	err := tx.Clauses(onConflictIgnore).Create(&CrateLink{CrateID: crateID, Links: links}).Error
	return errors.Wrap(err, "claiming links")
}

// GetAuthorByToken resolves a bearer token to its author, or nil if the
// token is unrecognized.
func GetAuthorByToken(tx *gorm.DB, token string) (*Author, error) {
	var at AuthorToken
	err := tx.Where("token = ?", token).First(&at).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying token")
	}
	var a Author
	if err := tx.First(&a, at.AuthorID).Error; err != nil {
		return nil, errors.Wrap(err, "querying author")
	}
	return &a, nil
}

// GetAuthorByEmail looks up an author by email, or nil if none exists.
func GetAuthorByEmail(tx *gorm.DB, email string) (*Author, error) {
	var a Author
	err := tx.Where("email = ?", email).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &a, errors.Wrap(err, "querying author")
}

// GetAuthorByID looks up an author by primary key, or nil if none exists.
func GetAuthorByID(tx *gorm.DB, id uint) (*Author, error) {
	var a Author
	err := tx.First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &a, errors.Wrap(err, "querying author")
}

// CreateAuthor inserts a new author and its PBKDF2 salt row.
func CreateAuthor(tx *gorm.DB, a *Author, salt string) error {
	if err := tx.Create(a).Error; err != nil {
		return errors.Wrap(err, "creating author")
	}
	if err := tx.Create(&Salt{AuthorID: a.ID, Salt: salt}).Error; err != nil {
		return errors.Wrap(err, "creating salt")
	}
	return nil
}

// GetSalt returns an author's PBKDF2 salt.
func GetSalt(tx *gorm.DB, authorID uint) (string, error) {
	var s Salt
	err := tx.Where("author_id = ?", authorID).First(&s).Error
	return s.Salt, errors.Wrap(err, "querying salt")
}

// CreateAuthorToken inserts a new token, unique per (author, name).
func CreateAuthorToken(tx *gorm.DB, authorID uint, name, token string) (*AuthorToken, error) {
	at := &AuthorToken{AuthorID: authorID, Name: name, Token: token}
	if err := tx.Create(at).Error; err != nil {
		return nil, errors.Wrap(err, "creating token")
	}
	return at, nil
}

// RevokeAuthorToken deletes a token by id, scoped to authorID.
func RevokeAuthorToken(tx *gorm.DB, authorID, tokenID uint) error {
	res := tx.Where("id = ? AND author_id = ?", tokenID, authorID).Delete(&AuthorToken{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "revoking token")
	}
	if res.RowsAffected == 0 {
		return errors.New("token not found")
	}
	return nil
}

// ListAuthorTokens returns every token owned by authorID.
func ListAuthorTokens(tx *gorm.DB, authorID uint) ([]AuthorToken, error) {
	var tokens []AuthorToken
	err := tx.Where("author_id = ?", authorID).Find(&tokens).Error
	return tokens, errors.Wrap(err, "listing tokens")
}

func timeNow() time.Time { return time.Now().UTC() }
