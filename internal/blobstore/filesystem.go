// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
)

// FilesystemStore stores blobs as plain files under a root directory,
// using go-billy's filesystem abstraction rather than bare os calls.
type FilesystemStore struct {
	fs billy.Filesystem
}

var _ Store = &FilesystemStore{}

// NewFilesystemStore creates a FilesystemStore rooted at dir, creating it if
// necessary.
func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating blob root %s", dir)
	}
	return &FilesystemStore{fs: osfs.New(dir)}, nil
}

// Put writes the blob using create-new-exclusive semantics: an existing
// file at the same path causes ErrAlreadyExists.
func (s *FilesystemStore) Put(ctx context.Context, key Key, r io.Reader) error {
	name := objectName(key)
	if err := s.fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return errors.Wrapf(err, "creating parent dir for %s", name)
	}
	f, err := s.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrAlreadyExists
		}
		return errors.Wrapf(err, "creating %s", name)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	return nil
}

// Get opens the blob for reading.
func (s *FilesystemStore) Get(ctx context.Context, key Key) (io.ReadCloser, error) {
	name := objectName(key)
	f, err := s.fs.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "opening %s", name)
	}
	return f, nil
}
