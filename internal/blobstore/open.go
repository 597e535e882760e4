// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"context"

	"github.com/pkg/errors"
)

// Open constructs a Store from a backend name ("filesystem" or "gcs") and
// its associated path/bucket, as read from internal/config.
func Open(ctx context.Context, backend, path, bucket string) (Store, error) {
	switch backend {
	case "filesystem", "":
		return NewFilesystemStore(path)
	case "gcs":
		return NewGCSStore(ctx, bucket)
	default:
		return nil, errors.Errorf("unsupported storage backend %q", backend)
	}
}
