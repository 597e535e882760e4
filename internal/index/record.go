// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package index implements the per-crate append-only, line-delimited JSON
// index: a fixed name-sharding layout, pure record operations, and a
// pluggable remote-sync strategy (shell git or an embedded git library).
// Grounded on pkg/registry/cratesio/index/find.go (EntryPath) and
// internal/gitx/clone.go (dual native-git/go-git dispatch).
package index

// Dependency mirrors one entry in a CrateVersion record's deps list.
type Dependency struct {
	Name            string   `json:"name"`
	Req             string   `json:"req"`
	Features        []string `json:"features"`
	Optional        bool     `json:"optional"`
	DefaultFeatures bool     `json:"default_features"`
	Target          string   `json:"target,omitempty"`
	Kind            string   `json:"kind"`
	Registry        string   `json:"registry,omitempty"`
	Package         string   `json:"package,omitempty"`
}

// Record is one line of a per-crate index file.
type Record struct {
	Name     string              `json:"name"`
	Vers     string              `json:"vers"`
	Deps     []Dependency        `json:"deps"`
	Cksum    string              `json:"cksum"`
	Features map[string][]string `json:"features"`
	Yanked   bool                `json:"yanked"`
	Links    string              `json:"links,omitempty"`
}

// DependencyKind enumerates the three kinds a Dependency.Kind may hold.
const (
	KindNormal = "normal"
	KindBuild  = "build"
	KindDev    = "dev"
)

// Config is the repository-root config.json consumed by clients.
type Config struct {
	DL                string   `json:"dl"`
	API               string   `json:"api"`
	AllowedRegistries []string `json:"allowed-registries,omitempty"`
}
