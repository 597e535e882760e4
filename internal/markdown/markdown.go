// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package markdown implements the default render_markdown(str) -> str
// collaborator the core calls out to when rendering a crate's README for
// the HTML front-end; the core itself treats Markdown-to-HTML conversion
// as an external collaborator and never parses Markdown directly.
package markdown

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var renderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Render converts src Markdown to HTML using GitHub-flavored extensions
// (tables, strikethrough, autolinks), matching the README rendering a
// crates.io-protocol front-end expects.
func Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(src), &buf); err != nil {
		return "", errors.Wrap(err, "rendering markdown")
	}
	return buf.String(), nil
}
