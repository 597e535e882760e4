// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package config loads the registry's TOML configuration file.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// DefaultPath is the config file name used when none is given on the CLI.
const DefaultPath = "cargoforge.toml"

// DefaultMaxUploadSize is the fallback publish body cap, in bytes.
const DefaultMaxUploadSize = 10 << 20 // 10 MiB

type General struct {
	Addr          string `toml:"addr"`
	MaxUploadSize int64  `toml:"max_upload_size"`
}

type Database struct {
	Driver string `toml:"driver"` // "sqlite" or "postgres"
	DSN    string `toml:"dsn"`
}

type Index struct {
	Path      string `toml:"path"`
	Strategy  string `toml:"strategy"` // "shell" or "library"
	RemoteURL string `toml:"remote_url"`
}

type Storage struct {
	Backend string `toml:"backend"` // "filesystem" or "gcs"
	Path    string `toml:"path"`
	Bucket  string `toml:"bucket"`
}

type Search struct {
	Path string `toml:"path"`
}

// Config is the root of the TOML configuration file.
type Config struct {
	General  General  `toml:"general"`
	Database Database `toml:"database"`
	Index    Index    `toml:"index"`
	Storage  Storage  `toml:"storage"`
	Search   Search   `toml:"search"`
}

func defaults() Config {
	return Config{
		General: General{
			Addr:          ":8080",
			MaxUploadSize: DefaultMaxUploadSize,
		},
		Database: Database{
			Driver: "sqlite",
			DSN:    "cargoforge.db",
		},
		Index: Index{
			Path:     "./index",
			Strategy: "shell",
		},
		Storage: Storage{
			Backend: "filesystem",
			Path:    "./blobs",
		},
		Search: Search{
			Path: "./search.bleve",
		},
	}
}

// Load reads and parses the TOML file at path, filling in defaults for any
// field the file omits.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	cfg := defaults()
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	if cfg.General.MaxUploadSize <= 0 {
		cfg.General.MaxUploadSize = DefaultMaxUploadSize
	}
	return &cfg, nil
}
