// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package blobstore stores and retrieves crate tarballs and rendered
// READMEs, keyed by (name, semver). Grounded on
// pkg/rebuild/rebuild/storage.go's AssetStore/GCSStore/
// FilesystemAssetStore split, generalized from a debug-asset taxonomy to
// the crate/readme pair.
package blobstore

import (
	"context"
	"io"
)

// Kind distinguishes the two blob types a crate version may have.
type Kind string

const (
	KindCrate  Kind = "crate"
	KindReadme Kind = "readme"
)

// Key identifies one blob.
type Key struct {
	Name    string
	Version string
	Kind    Kind
}

// ErrNotFound is returned by Get when the key does not exist, distinct
// from an I/O error, so a caller can treat a missing README as a normal
// state.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "blob not found" }

// ErrAlreadyExists is returned by Put for backends with create-new-exclusive
// semantics when the key is already occupied.
var ErrAlreadyExists = errAlreadyExists{}

type errAlreadyExists struct{}

func (errAlreadyExists) Error() string { return "blob already exists" }

// Store is the blob storage interface. FilesystemStore.Put uses
// create-new-exclusive semantics, so a duplicate upload fails fast with
// ErrAlreadyExists; GCSStore.Put is unconditional and overwrites.
type Store interface {
	Put(ctx context.Context, key Key, r io.Reader) error
	Get(ctx context.Context, key Key) (io.ReadCloser, error)
}

func objectName(key Key) string {
	switch key.Kind {
	case KindReadme:
		return key.Name + "-" + key.Version + ".readme"
	default:
		return key.Name + "-" + key.Version + ".crate"
	}
}
