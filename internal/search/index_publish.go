// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package search

import "github.com/cargoforge/registry/internal/store"

// DocumentFromCrate builds the indexed view of a crate row plus its
// current keyword/category tag sets, for the incremental upsert a
// publish performs.
func DocumentFromCrate(c store.Crate, keywords, categories []string) Document {
	return Document{
		ID:          uint64(c.ID),
		Name:        c.Name,
		NameExact:   c.Name,
		NamePrefix:  c.Name,
		Description: c.Description,
		Categories:  categories,
		Keywords:    keywords,
	}
}
