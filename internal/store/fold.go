// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package store

import "strings"

// Fold canonicalizes a crate name: lowercase, with '-' and '_' mapped to
// the same character, so "Widget-Core" and "widget_core" collide.
func Fold(name string) string {
	lower := strings.ToLower(name)
	return strings.Map(func(r rune) rune {
		if r == '_' {
			return '-'
		}
		return r
	}, lower)
}
