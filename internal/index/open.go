// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package index

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

// Open constructs a Remote using strategy ("shell" or "library") over the
// working tree at dir with the given upstream url, as read from
// internal/config. If dir does not yet contain a repository and a
// non-empty url is given, the library strategy clones it first.
func Open(ctx context.Context, strategy, dir, url string) (Remote, error) {
	switch strategy {
	case "shell", "":
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating index root %s", dir)
		}
		return NewShellRemote(dir, url), nil
	case "library":
		if _, err := os.Stat(dir + "/.git"); err == nil {
			return OpenLibraryRemote(dir, url)
		}
		if url == "" {
			return nil, errors.Errorf("no repository at %s and no remote_url configured", dir)
		}
		return CloneLibraryRemote(ctx, dir, url)
	default:
		return nil, errors.Errorf("unsupported index strategy %q", strategy)
	}
}
