// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package search implements the inverted-index search engine over crate
// metadata: ranked full-text search and prefix-based suggestion, kept
// consistent with the relational store by incremental updates on publish
// and a bulk reindexer for repair. Grounded on bleve's field-mapping API;
// no pack example repo embeds a full-text engine (see DESIGN.md).
package search

import (
	"strconv"

	"github.com/pkg/errors"
)

// Document is the indexed view of a crate. Field names match the bleve
// mapping built in mapping.go.
type Document struct {
	ID          uint64   `json:"id"`
	Name        string   `json:"name"`
	NameExact   string   `json:"name_exact"`
	NamePrefix  string   `json:"name_prefix"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	Keywords    []string `json:"keywords"`
}

func docID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func parseDocID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	return id, errors.Wrapf(err, "parsing document id %q", s)
}
