// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/cargoforge/registry/internal/store"
)

const reindexPageSize = 500

// keywordEdge and categoryEdge are the join-table rows streamed in
// crate-id order to attach edges to each page via a merge cursor.
type keywordEdge struct {
	CrateID uint
	Name    string
}

type categoryEdge struct {
	CrateID uint
	Tag     string
}

// ReindexAll streams the crate table in fixed-size pages ordered by id;
// for each page it bulk-loads the page's keyword and category edges
// (also ordered by crate id) and advances two merge cursors to attach
// edges to documents, then commits per page.
func ReindexAll(e *Engine, db *gorm.DB) error {
	if err := e.DeleteAll(); err != nil {
		return errors.Wrap(err, "clearing search index before reindex")
	}
	var lastID uint
	for {
		var page []store.Crate
		err := db.Where("id > ?", lastID).Order("id").Limit(reindexPageSize).Find(&page).Error
		if err != nil {
			return errors.Wrap(err, "paging crates")
		}
		if len(page) == 0 {
			break
		}
		minID, maxID := page[0].ID, page[len(page)-1].ID

		var keywordEdges []keywordEdge
		err = db.Table("crate_keywords").
			Select("crate_keywords.crate_id AS crate_id, keywords.name AS name").
			Joins("JOIN keywords ON keywords.id = crate_keywords.keyword_id").
			Where("crate_keywords.crate_id BETWEEN ? AND ?", minID, maxID).
			Order("crate_keywords.crate_id").
			Scan(&keywordEdges).Error
		if err != nil {
			return errors.Wrap(err, "loading keyword edges")
		}

		var categoryEdges []categoryEdge
		err = db.Table("crate_categories").
			Select("crate_categories.crate_id AS crate_id, categories.tag AS tag").
			Joins("JOIN categories ON categories.id = crate_categories.category_id").
			Where("crate_categories.crate_id BETWEEN ? AND ?", minID, maxID).
			Order("crate_categories.crate_id").
			Scan(&categoryEdges).Error
		if err != nil {
			return errors.Wrap(err, "loading category edges")
		}

		ki, ci := 0, 0
		for _, c := range page {
			var keywords []string
			for ki < len(keywordEdges) && keywordEdges[ki].CrateID == c.ID {
				keywords = append(keywords, keywordEdges[ki].Name)
				ki++
			}
			var categories []string
			for ci < len(categoryEdges) && categoryEdges[ci].CrateID == c.ID {
				categories = append(categories, categoryEdges[ci].Tag)
				ci++
			}
			doc := Document{
				ID:          uint64(c.ID),
				Name:        c.Name,
				NameExact:   c.Name,
				NamePrefix:  c.Name,
				Description: c.Description,
				Categories:  categories,
				Keywords:    keywords,
			}
			if err := e.IndexDocument(doc); err != nil {
				return errors.Wrapf(err, "indexing crate %d during reindex", c.ID)
			}
		}
		if err := e.Commit(); err != nil {
			return errors.Wrap(err, "committing reindex page")
		}
		lastID = maxID
	}
	return nil
}
