// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package index

import "context"

// Remote wraps a Tree with the three network operations the publish and
// yank pipelines need. The engine performs no locking itself; the caller
// (internal/publish, internal/registry) serializes access under a
// single-writer discipline.
type Remote interface {
	// URL returns the current upstream URL.
	URL() string
	// Refresh fetches and fast-forwards the working branch. A
	// non-fast-forward state is a fatal error, since the core mandates
	// single-writer semantics.
	Refresh(ctx context.Context) error
	// CommitAndPush stages the entire working tree, commits with msg,
	// and pushes to upstream.
	CommitAndPush(ctx context.Context, msg string) error
	// Tree returns the underlying pure record store.
	Tree() *Tree
}
