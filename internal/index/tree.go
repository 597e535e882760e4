// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package index

import (
	"bufio"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/cargoforge/registry/internal/rerror"
	"github.com/cargoforge/registry/internal/semver"
)

// Tree is the pure, network-free view of the index: a directory of
// sharded per-crate record files.
type Tree struct {
	root string
}

// NewTree opens a Tree rooted at dir.
func NewTree(dir string) *Tree {
	return &Tree{root: dir}
}

func (t *Tree) path(name string) string {
	return filepath.Join(t.root, EntryPath(name))
}

// AllRecords reads every record for name, in insertion order. A missing
// file is CrateNotFound.
func (t *Tree) AllRecords(name string) ([]Record, error) {
	f, err := os.Open(t.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &rerror.CrateNotFound{Name: name}
		}
		return nil, errors.Wrapf(err, "opening index file for %s", name)
	}
	defer f.Close()
	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, errors.Wrapf(err, "parsing index record for %s", name)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading index file for %s", name)
	}
	return records, nil
}

// LatestRecord returns the record with the maximum semver for name.
func (t *Tree) LatestRecord(name string) (*Record, error) {
	records, err := t.AllRecords(name)
	if err != nil {
		return nil, err
	}
	return maxRecord(records), nil
}

func maxRecord(records []Record) *Record {
	var max *Record
	for i := range records {
		if max == nil || semver.GreaterThan(records[i].Vers, max.Vers) {
			max = &records[i]
		}
	}
	return max
}

// MatchRecord returns the record with the maximum semver among name's
// records for which matches reports true. No match is not an error (nil, nil); an absent
// crate is CrateNotFound.
func (t *Tree) MatchRecord(name string, matches func(Record) bool) (*Record, error) {
	records, err := t.AllRecords(name)
	if err != nil {
		return nil, err
	}
	var candidates []Record
	for _, r := range records {
		if matches(r) {
			candidates = append(candidates, r)
		}
	}
	return maxRecord(candidates), nil
}

// AddRecord appends v to name's file, asserting strict version
// monotonicity against the existing maximum. If the file does not yet
// exist, it is created (along with any parent directories).
func (t *Tree) AddRecord(v Record) error {
	path := t.path(v.Name)
	existing, err := t.AllRecords(v.Name)
	if err != nil {
		var nf *rerror.CrateNotFound
		if !errors.As(err, &nf) {
			return err
		}
		existing = nil
	}
	if max := maxRecord(existing); max != nil && !semver.GreaterThan(v.Vers, max.Vers) {
		return &rerror.VersionTooLow{Name: v.Name, Hosted: max.Vers, Published: v.Vers}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating parent dir for %s", v.Name)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrapf(err, "opening index file for %s", v.Name)
	}
	defer f.Close()
	line, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding index record for %s", v.Name)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return errors.Wrapf(err, "appending index record for %s", v.Name)
	}
	return f.Sync()
}

// AlterRecord reads all records for name, locates the exact version,
// applies mutate, and rewrites the whole file. It is an error if the
// version is not present.
func (t *Tree) AlterRecord(name, vers string, mutate func(*Record)) error {
	records, err := t.AllRecords(name)
	if err != nil {
		return err
	}
	found := false
	for i := range records {
		if records[i].Vers == vers {
			mutate(&records[i])
			found = true
			break
		}
	}
	if !found {
		return errors.Errorf("version %s not found for crate %s", vers, name)
	}
	return t.rewrite(name, records)
}

func (t *Tree) rewrite(name string, records []Record) error {
	path := t.path(name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, "rewriting index file for %s", name)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return errors.Wrapf(err, "encoding index record for %s", name)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return errors.Wrapf(err, "writing index record for %s", name)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "flushing index file for %s", name)
	}
	return f.Sync()
}

// Yank flips the yanked flag to true for (name, vers).
func (t *Tree) Yank(name, vers string) error {
	return t.AlterRecord(name, vers, func(r *Record) { r.Yanked = true })
}

// Unyank flips the yanked flag to false for (name, vers).
func (t *Tree) Unyank(name, vers string) error {
	return t.AlterRecord(name, vers, func(r *Record) { r.Yanked = false })
}

// WriteConfig writes the repository-root config.json.
func (t *Tree) WriteConfig(cfg Config) error {
	if err := os.MkdirAll(t.root, 0o755); err != nil {
		return errors.Wrap(err, "creating index root")
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding config.json")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(t.root, "config.json"), b, 0o644), "writing config.json")
}
