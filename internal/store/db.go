// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps a *gorm.DB with the transactional Run helper the core requires.
type DB struct {
	gorm *gorm.DB
}

// Open opens a connection using driver ("sqlite" or "postgres") and dsn,
// then migrates the schema.
func Open(driver, dsn string) (*DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, errors.Wrap(err, "retrieving underlying sql.DB")
	}
	sqlDB.SetMaxOpenConns(16)
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		return nil, errors.Wrap(err, "migrating schema")
	}
	return &DB{gorm: gdb}, nil
}

// Run executes fn within a single transaction, rolling back on any error
// fn returns.
func (d *DB) Run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.gorm.WithContext(ctx).Transaction(fn)
}

// Gorm exposes the underlying handle for work outside a Run transaction:
// the read paths' ad-hoc joins, and the owner and token mutations in
// internal/registry, which run as separate statements.
func (d *DB) Gorm() *gorm.DB { return d.gorm }
