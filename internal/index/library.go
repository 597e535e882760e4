// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package index

import (
	"context"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/pkg/errors"
)

// processIdentity is the author/committer signature attached to index
// commits made by this process.
var processIdentity = object.Signature{Name: "cargoforge-registry", Email: "registry@localhost"}

// LibraryRemote uses an embedded git library (go-git) instead of shelling
// out. It authenticates through the SSH agent when one is reachable and
// otherwise passes no auth method, leaving go-git's default transport
// behavior; no git credential helper is consulted. On Refresh, only
// fast-forward merges are accepted.
//
// A single mutex guards the embedded repository handle to serialize
// concurrent writers within one process.
type LibraryRemote struct {
	repo *git.Repository
	url  string
	tr   *Tree

	mu sync.Mutex
}

var _ Remote = &LibraryRemote{}

// OpenLibraryRemote opens an existing on-disk repository at dir.
func OpenLibraryRemote(dir, url string) (*LibraryRemote, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "opening index repository at %s", dir)
	}
	return &LibraryRemote{repo: repo, url: url, tr: NewTree(dir)}, nil
}

// CloneLibraryRemote clones url into dir, creating a new LibraryRemote.
func CloneLibraryRemote(ctx context.Context, dir, url string) (*LibraryRemote, error) {
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:  url,
		Auth: resolveAuth(url),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cloning index repository %s", url)
	}
	return &LibraryRemote{repo: repo, url: url, tr: NewTree(dir)}, nil
}

func resolveAuth(url string) transport.AuthMethod {
	if auth, err := gitssh.NewSSHAgentAuth("git"); err == nil {
		return auth
	}
	// Fall back to go-git's default transport behavior (no explicit auth
	// method).
	return nil
}

func (r *LibraryRemote) URL() string { return r.url }
func (r *LibraryRemote) Tree() *Tree { return r.tr }

// Refresh fetches and fast-forwards the working branch. Already-up-to-date
// is not an error; any other non-fast-forward outcome is.
func (r *LibraryRemote) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	wt, err := r.repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "opening worktree")
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName: "origin",
		Auth:       resolveAuth(r.url),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return errors.Wrap(err, "refreshing index (non-fast-forward or network failure)")
	}
	return nil
}

// CommitAndPush stages the entire working tree, commits with a signature
// derived from process identity, and pushes to upstream.
func (r *LibraryRemote) CommitAndPush(ctx context.Context, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	wt, err := r.repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "opening worktree")
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return errors.Wrap(err, "staging index changes")
	}
	sig := processIdentity
	sig.When = time.Now()
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &sig,
	})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			return nil
		}
		return errors.Wrap(err, "committing index changes")
	}
	err = r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		Auth:       resolveAuth(r.url),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return errors.Wrap(err, "pushing index changes")
	}
	return nil
}
