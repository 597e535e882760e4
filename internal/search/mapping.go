// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/edgengram"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/pkg/errors"
)

// Analyzer names, one per field in the boost table.
const (
	analyzerName       = "crate_name"
	analyzerNameExact  = "crate_name_exact"
	analyzerNamePrefix = "crate_name_prefix"   // index-time: edge-ngrammed
	analyzerPlainToken = "crate_plain_token"   // query-time stand-in, no ngram
	analyzerSingle     = "crate_single_lower"  // categories: single token, lowercase
	analyzerStopworded = "crate_stopworded"    // description, keywords

	edgeNgramFilter = "crate_edge_ngram"
)

// Field boosts, matched 1:1 against the analyzer table.
const (
	BoostName        = 5.0
	BoostNameExact   = 10.0
	BoostNamePrefix  = 1.0
	BoostDescription = 0.2
	BoostCategories  = 1.0
	BoostKeywords    = 0.5
)

func buildIndexMapping() (mapping.IndexMapping, error) {
	m := bleve.NewIndexMapping()

	if err := m.AddCustomTokenFilter(edgeNgramFilter, map[string]any{
		"type": edgengram.Name,
		"side": edgengram.FrontSide,
		"min":  1.0,
		"max":  24.0,
	}); err != nil {
		return nil, errors.Wrap(err, "registering edge-ngram filter")
	}

	analyzers := []struct {
		name      string
		tokenizer string
		filters   []string
	}{
		{analyzerName, unicode.Name, []string{lowercase.Name, en.StopName}},
		{analyzerNameExact, single.Name, []string{lowercase.Name}},
		{analyzerNamePrefix, unicode.Name, []string{lowercase.Name, edgeNgramFilter}},
		{analyzerPlainToken, unicode.Name, []string{lowercase.Name}},
		{analyzerSingle, single.Name, []string{lowercase.Name}},
		{analyzerStopworded, unicode.Name, []string{lowercase.Name, en.StopName}},
	}
	for _, a := range analyzers {
		if err := m.AddCustomAnalyzer(a.name, map[string]any{
			"type":          "custom",
			"tokenizer":     a.tokenizer,
			"token_filters": a.filters,
		}); err != nil {
			return nil, errors.Wrapf(err, "registering %s analyzer", a.name)
		}
	}

	doc := bleve.NewDocumentMapping()

	idField := bleve.NewNumericFieldMapping()
	idField.Store = true
	doc.AddFieldMappingsAt("id", idField)

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = analyzerName
	doc.AddFieldMappingsAt("name", nameField)

	nameExactField := bleve.NewTextFieldMapping()
	nameExactField.Analyzer = analyzerNameExact
	doc.AddFieldMappingsAt("name_exact", nameExactField)

	namePrefixField := bleve.NewTextFieldMapping()
	namePrefixField.Analyzer = analyzerNamePrefix
	doc.AddFieldMappingsAt("name_prefix", namePrefixField)

	descField := bleve.NewTextFieldMapping()
	descField.Analyzer = analyzerStopworded
	doc.AddFieldMappingsAt("description", descField)

	categoriesField := bleve.NewTextFieldMapping()
	categoriesField.Analyzer = analyzerSingle
	doc.AddFieldMappingsAt("categories", categoriesField)

	keywordsField := bleve.NewTextFieldMapping()
	keywordsField.Analyzer = analyzerStopworded
	doc.AddFieldMappingsAt("keywords", keywordsField)

	m.DefaultMapping = doc
	m.DefaultAnalyzer = analyzerName
	return m, nil
}
