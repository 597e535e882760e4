// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package store provides the relational store: typed gorm models for
// crates, authors, tokens, sessions, keywords, categories, badges, and
// ownership, plus a transactional Run helper. Unique constraints are
// declared on the gorm tags and enforced by the underlying SQL driver.
package store

import "time"

// Crate is the canonical row for a published package name.
type Crate struct {
	ID             uint `gorm:"primaryKey"`
	Name           string
	CanonicalName  string `gorm:"uniqueIndex"`
	Description    string
	Repository     string
	Documentation  string
	Downloads      uint64 `gorm:"default:0"`
	MaxUploadSize  *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Author is a registered publisher with optional Passwd, GithubID and
// GitlabID credentials. Neither the schema nor CreateAuthor checks that
// at least one of the three is set.
type Author struct {
	ID       uint   `gorm:"primaryKey"`
	Email    string `gorm:"uniqueIndex"`
	Name     string
	Passwd   string
	GithubID *int64 `gorm:"uniqueIndex"`
	GitlabID *int64 `gorm:"uniqueIndex"`
	Avatar   string
}

// Salt is the per-author PBKDF2 salt, hex-encoded.
type Salt struct {
	AuthorID uint   `gorm:"primaryKey"`
	Salt     string
}

// AuthorToken is an issued bearer token.
type AuthorToken struct {
	ID       uint `gorm:"primaryKey"`
	AuthorID uint `gorm:"uniqueIndex:idx_author_token_name"`
	Name     string `gorm:"uniqueIndex:idx_author_token_name"`
	Token    string `gorm:"uniqueIndex"`
}

// CrateAuthor is the ownership edge between a crate and an author.
type CrateAuthor struct {
	CrateID  uint `gorm:"primaryKey;uniqueIndex:idx_crate_author"`
	AuthorID uint `gorm:"primaryKey;uniqueIndex:idx_crate_author"`
}

// Keyword is a deduplicated keyword row, upserted by name.
type Keyword struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex"`
}

// CrateKeyword is the many-to-many edge between crates and keywords.
type CrateKeyword struct {
	CrateID   uint `gorm:"primaryKey"`
	KeywordID uint `gorm:"primaryKey"`
}

// Category is a fixed taxonomy tag.
type Category struct {
	ID   uint   `gorm:"primaryKey"`
	Tag  string `gorm:"uniqueIndex"`
	Name string
}

// CrateCategory is the many-to-many edge between crates and categories.
type CrateCategory struct {
	CrateID    uint `gorm:"primaryKey"`
	CategoryID uint `gorm:"primaryKey"`
}

// Badge is a many-to-many edge carrying a typed attribute blob.
type Badge struct {
	ID         uint `gorm:"primaryKey"`
	CrateID    uint
	BadgeType  string
	Attributes string // JSON-encoded attribute map
}

// CrateLink records a crate's claimed `links` native-library name, so the
// publish pipeline can reject a collision across crates.
type CrateLink struct {
	CrateID uint   `gorm:"primaryKey"`
	Links   string `gorm:"uniqueIndex"`
}

// Session is opaque to the core beyond its expiry.
type Session struct {
	ID       string `gorm:"primaryKey"`
	AuthorID *uint
	Expiry   time.Time
	Data     []byte
}

// AllModels lists every model for AutoMigrate, in dependency order.
func AllModels() []any {
	return []any{
		&Crate{}, &Author{}, &Salt{}, &AuthorToken{}, &CrateAuthor{},
		&Keyword{}, &CrateKeyword{}, &Category{}, &CrateCategory{},
		&Badge{}, &CrateLink{}, &Session{},
	}
}
