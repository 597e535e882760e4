// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/pkg/errors"
)

// Engine wraps a bleve index with the operations the registry needs:
// incremental upsert, bulk wipe, explicit commit, ranked search, and
// prefix suggestion. A single mutex serializes writers, confining the
// index's mutable state to one process-wide handle.
type Engine struct {
	idx bleve.Index
	mu  sync.Mutex
}

// Open opens (or creates) a bleve index rooted at path.
func Open(path string) (*Engine, error) {
	idx, err := bleve.Open(path)
	if err == nil {
		return &Engine{idx: idx}, nil
	}
	m, merr := buildIndexMapping()
	if merr != nil {
		return nil, merr
	}
	idx, err = bleve.New(path, m)
	if err != nil {
		return nil, errors.Wrapf(err, "creating search index at %s", path)
	}
	return &Engine{idx: idx}, nil
}

func (e *Engine) Close() error {
	return e.idx.Close()
}

// IndexDocument upserts doc: delete-by-id, then add.
func (e *Engine) IndexDocument(doc Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := docID(doc.ID)
	// Delete-by-id before add: bleve.Delete is a no-op on a missing id,
	// so this also covers first-time indexing.
	_ = e.idx.Delete(id)
	if err := e.idx.Index(id, doc); err != nil {
		return errors.Wrapf(err, "indexing document %d", doc.ID)
	}
	return nil
}

// DeleteAll wipes every document from the index.
func (e *Engine) DeleteAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids, err := e.allIDs()
	if err != nil {
		return err
	}
	batch := e.idx.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return errors.Wrap(e.idx.Batch(batch), "wiping search index")
}

func (e *Engine) allIDs() ([]string, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = 1 << 20
	res, err := e.idx.Search(req)
	if err != nil {
		return nil, errors.Wrap(err, "listing search documents")
	}
	ids := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Commit is a no-op seam: bleve's Index/Batch calls are already durable
// and visible to subsequent readers on return, unlike engines that batch
// writes behind an explicit flush. Kept as a named operation so callers
// (and tests) can express "now visible to readers" without caring which
// engine is underneath.
func (e *Engine) Commit() error { return nil }

// Search runs query over the boosted fields, returning the total hit
// count and the matching document ids in score-descending order. An
// empty query degenerates to match-all.
func (e *Engine) Search(q string, offset, limit int) (uint64, []uint64, error) {
	var bq query.Query
	if q == "" {
		bq = bleve.NewMatchAllQuery()
	} else {
		bq = disjunction(q)
	}
	req := bleve.NewSearchRequestOptions(bq, limit, offset, false)
	res, err := e.idx.Search(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "searching")
	}
	ids := make([]uint64, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := parseDocID(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return res.Total, ids, nil
}

func disjunction(q string) query.Query {
	fields := []struct {
		field string
		boost float64
	}{
		{"name", BoostName},
		{"name_exact", BoostNameExact},
		{"description", BoostDescription},
		{"categories", BoostCategories},
		{"keywords", BoostKeywords},
	}
	var disj []query.Query
	for _, f := range fields {
		mq := bleve.NewMatchQuery(q)
		mq.SetField(f.field)
		b := f.boost
		mq.SetBoost(b)
		disj = append(disj, mq)
	}
	return bleve.NewDisjunctionQuery(disj...)
}

// Suggest queries name_exact and name_prefix only, boosting name_exact
// 10x over name_prefix, and returns matching crate names.
func (e *Engine) Suggest(prefix string, limit int) ([]string, error) {
	exact := bleve.NewMatchQuery(prefix)
	exact.SetField("name_exact")
	exact.SetBoost(BoostNameExact)

	pre := bleve.NewMatchQuery(prefix)
	pre.SetField("name_prefix")
	pre.SetAnalyzer(analyzerPlainToken)
	pre.SetBoost(BoostNamePrefix)

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(exact, pre), limit, 0, false)
	req.Fields = []string{"name"}
	res, err := e.idx.Search(req)
	if err != nil {
		return nil, errors.Wrap(err, "suggesting")
	}
	names := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if name, ok := hit.Fields["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}
