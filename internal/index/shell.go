// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package index

import (
	"bytes"
	"context"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
)

// ShellRemote invokes the platform git binary directly. Credentials come
// from the ambient git configuration (SSH agent, credential helper, etc).
// Grounded on internal/gitx/clone.go's NativeClone, which shells out to
// "git" via exec.CommandContext rather than an embedded library.
type ShellRemote struct {
	dir string
	url string
	tr  *Tree

	mu sync.Mutex // serializes concurrent writers within this process
}

var _ Remote = &ShellRemote{}

// NewShellRemote wraps the working tree at dir, whose origin remote is url.
func NewShellRemote(dir, url string) *ShellRemote {
	return &ShellRemote{dir: dir, url: url, tr: NewTree(dir)}
}

func (r *ShellRemote) URL() string  { return r.url }
func (r *ShellRemote) Tree() *Tree  { return r.tr }

func (r *ShellRemote) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "git %v: %s", args, stderr.String())
	}
	return nil
}

// Refresh pulls with --ff-only; a non-fast-forward state surfaces as a
// hard error rather than silently merging or rebasing.
func (r *ShellRemote) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.git(ctx, "pull", "--ff-only", "origin")
}

// CommitAndPush stages the entire working tree, commits, and pushes.
func (r *ShellRemote) CommitAndPush(ctx context.Context, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.git(ctx, "add", "--all"); err != nil {
		return err
	}
	if err := r.git(ctx, "commit", "-m", msg); err != nil {
		return err
	}
	return r.git(ctx, "push", "origin")
}
