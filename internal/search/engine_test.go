// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"path/filepath"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(filepath.Join(t.TempDir(), "test.bleve"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestIndexThenSearchReturnsDocID(t *testing.T) {
	e := newTestEngine(t)
	doc := Document{ID: 1, Name: "widget", NameExact: "widget", NamePrefix: "widget", Description: "a small widget"}
	if err := e.IndexDocument(doc); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}
	if err := e.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	total, ids, err := e.Search("widget", 0, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total == 0 || len(ids) == 0 || ids[0] != 1 {
		t.Errorf("Search(widget) = (%d, %v), want id 1 in first position", total, ids)
	}
}

func TestSearchEmptyQueryMatchesAll(t *testing.T) {
	e := newTestEngine(t)
	for i, name := range []string{"widget", "gadget", "gizmo"} {
		doc := Document{ID: uint64(i + 1), Name: name, NameExact: name, NamePrefix: name}
		if err := e.IndexDocument(doc); err != nil {
			t.Fatalf("IndexDocument(%s) error = %v", name, err)
		}
	}
	total, _, err := e.Search("", 0, 10)
	if err != nil {
		t.Fatalf("Search(\"\") error = %v", err)
	}
	if total != 3 {
		t.Errorf("Search(\"\") total = %d, want 3", total)
	}
}

func TestSuggestPrefixMatch(t *testing.T) {
	e := newTestEngine(t)
	for i, name := range []string{"widget-core", "widget-extras", "gizmo"} {
		doc := Document{ID: uint64(i + 1), Name: name, NameExact: name, NamePrefix: name}
		if err := e.IndexDocument(doc); err != nil {
			t.Fatalf("IndexDocument(%s) error = %v", name, err)
		}
	}
	names, err := e.Suggest("widg", 10)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(names) != 2 {
		t.Errorf("Suggest(widg) = %v, want 2 matches", names)
	}
}

func TestDeleteAllWipesIndex(t *testing.T) {
	e := newTestEngine(t)
	if err := e.IndexDocument(Document{ID: 1, Name: "widget", NameExact: "widget", NamePrefix: "widget"}); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}
	if err := e.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	total, _, err := e.Search("", 0, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 0 {
		t.Errorf("Search() total after DeleteAll = %d, want 0", total)
	}
}
