// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"context"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/pkg/errors"
)

// GCSStore stores blobs as objects in a GCS bucket, unconditional put.
// Grounded on pkg/rebuild/rebuild/storage.go's GCSStore.
type GCSStore struct {
	client *gcs.Client
	bucket string
	prefix string
}

var _ Store = &GCSStore{}

// NewGCSStore creates a GCSStore from a "bucket/prefix" string.
func NewGCSStore(ctx context.Context, bucketAndPrefix string) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating GCS client")
	}
	bucket, prefix, _ := strings.Cut(bucketAndPrefix, "/")
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSStore) objectPath(key Key) string {
	name := objectName(key)
	if s.prefix == "" {
		return key.Name + "/" + name
	}
	return s.prefix + "/" + key.Name + "/" + name
}

// Put writes the object unconditionally, overwriting any existing object
// at the same key.
func (s *GCSStore) Put(ctx context.Context, key Key, r io.Reader) error {
	obj := s.client.Bucket(s.bucket).Object(s.objectPath(key))
	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return errors.Wrapf(err, "writing %s", s.objectPath(key))
	}
	return errors.Wrapf(w.Close(), "closing writer for %s", s.objectPath(key))
}

// Get opens the object for reading; body may be absent (ErrNotFound).
func (s *GCSStore) Get(ctx context.Context, key Key) (io.ReadCloser, error) {
	obj := s.client.Bucket(s.bucket).Object(s.objectPath(key))
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "opening %s", s.objectPath(key))
	}
	return r, nil
}
