// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package registry implements the Read Paths and Mutation Paths: search,
// suggest, download, crate info, owner management, yank/unyank, and
// token lifecycle, orchestrating internal/store, internal/index,
// internal/search, internal/blobstore, and internal/auth.
package registry

import (
	"context"
	"io"
	"sort"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/cargoforge/registry/internal/blobstore"
	"github.com/cargoforge/registry/internal/index"
	"github.com/cargoforge/registry/internal/rerror"
	"github.com/cargoforge/registry/internal/search"
	"github.com/cargoforge/registry/internal/store"
)

// Dependencies are the collaborators the read/mutation paths need.
type Dependencies struct {
	Store  *store.DB
	Blobs  blobstore.Store
	Remote index.Remote
	Search *search.Engine
}

// Download increments the crate's download counter and returns a reader
// over the stored tarball bytes. An unknown crate is CrateNotFound.
func Download(ctx context.Context, deps Dependencies, name, vers string) (io.ReadCloser, error) {
	canonical := store.Fold(name)
	tx := deps.Store.Gorm()
	c, err := store.GetCrateByCanonicalName(tx, canonical)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &rerror.CrateNotFound{Name: name}
	}
	if err := deps.Store.Run(ctx, func(tx *gorm.DB) error {
		return store.IncrementDownloads(tx, c.ID)
	}); err != nil {
		return nil, err
	}
	return deps.Blobs.Get(ctx, blobstore.Key{Name: name, Version: vers, Kind: blobstore.KindCrate})
}

// SearchResult pairs a crate row with its latest index record.
type SearchResult struct {
	Crate  store.Crate
	Latest *index.Record
}

// Search runs the full-text query, then fetches and orders the matching
// crate rows to preserve the search ranking. An id with no DB row is left
// out of the results; a row whose id is missing from the ranking sorts
// last.
func Search(deps Dependencies, query string, offset, limit int) (total uint64, results []SearchResult, err error) {
	total, ids, err := deps.Search.Search(query, offset, limit)
	if err != nil {
		return 0, nil, errors.Wrap(err, "searching")
	}
	if len(ids) == 0 {
		return total, nil, nil
	}
	var crates []store.Crate
	if err := deps.Store.Gorm().Where("id IN ?", ids).Find(&crates).Error; err != nil {
		return 0, nil, errors.Wrap(err, "loading search results")
	}
	byID := make(map[uint]store.Crate, len(crates))
	for _, c := range crates {
		byID[c.ID] = c
	}
	rank := make(map[uint]int, len(ids))
	for i, id := range ids {
		rank[uint(id)] = i
	}
	results = make([]SearchResult, 0, len(crates))
	for _, c := range crates {
		latest, err := deps.Remote.Tree().LatestRecord(c.Name)
		if err != nil {
			return 0, nil, err
		}
		results = append(results, SearchResult{Crate: c, Latest: latest})
	}
	sort.SliceStable(results, func(i, j int) bool {
		ri, oki := rank[results[i].Crate.ID]
		rj, okj := rank[results[j].Crate.ID]
		if !oki {
			return false
		}
		if !okj {
			return true
		}
		return ri < rj
	})
	return total, results, nil
}

// Suggestion pairs a crate name with its latest semver.
type Suggestion struct {
	Name    string
	Version string
}

// Suggest queries name completion and pairs each hit with its latest
// hosted version.
func Suggest(deps Dependencies, prefix string, limit int) ([]Suggestion, error) {
	names, err := deps.Search.Suggest(prefix, limit)
	if err != nil {
		return nil, errors.Wrap(err, "suggesting")
	}
	out := make([]Suggestion, 0, len(names))
	for _, name := range names {
		latest, err := deps.Remote.Tree().LatestRecord(name)
		if err != nil {
			continue
		}
		out = append(out, Suggestion{Name: name, Version: latest.Vers})
	}
	return out, nil
}

// Info returns the crate row for name, plus its full index history.
func Info(deps Dependencies, name string) (store.Crate, []index.Record, error) {
	c, err := store.GetCrateByCanonicalName(deps.Store.Gorm(), store.Fold(name))
	if err != nil {
		return store.Crate{}, nil, err
	}
	if c == nil {
		return store.Crate{}, nil, &rerror.CrateNotFound{Name: name}
	}
	records, err := deps.Remote.Tree().AllRecords(name)
	if err != nil {
		return store.Crate{}, nil, err
	}
	return *c, records, nil
}

// Owners returns the authors owning the named crate.
func Owners(deps Dependencies, name string) ([]store.Author, error) {
	c, err := store.GetCrateByCanonicalName(deps.Store.Gorm(), store.Fold(name))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &rerror.CrateNotFound{Name: name}
	}
	return store.ListCrateAuthors(deps.Store.Gorm(), c.ID)
}

// AuthorProfile returns the public profile for the author with the given
// id (supplemented read path: backs both `GET /me`, resolved from the
// bearer token's author id, and `GET /authors/:id`).
func AuthorProfile(deps Dependencies, id uint) (store.Author, error) {
	a, err := store.GetAuthorByID(deps.Store.Gorm(), id)
	if err != nil {
		return store.Author{}, err
	}
	if a == nil {
		return store.Author{}, &rerror.AuthorNotFound{ID: id}
	}
	return *a, nil
}

// Categories lists every known category tag.
func Categories(deps Dependencies) ([]store.Category, error) {
	var cats []store.Category
	err := deps.Store.Gorm().Order("tag").Find(&cats).Error
	return cats, errors.Wrap(err, "listing categories")
}

// Dependents finds every crate whose latest index record depends on
// name (reverse-dependency lookup).
func Dependents(deps Dependencies, name string) ([]string, error) {
	var crates []store.Crate
	if err := deps.Store.Gorm().Order("name").Find(&crates).Error; err != nil {
		return nil, errors.Wrap(err, "listing crates")
	}
	var dependents []string
	for _, c := range crates {
		latest, err := deps.Remote.Tree().LatestRecord(c.Name)
		if err != nil || latest == nil {
			continue
		}
		for _, d := range latest.Deps {
			if d.Name == name || d.Package == name {
				dependents = append(dependents, c.Name)
				break
			}
		}
	}
	return dependents, nil
}
