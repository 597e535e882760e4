// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package index

import (
	"path/filepath"
	"strings"
)

// EntryPath returns the path, relative to the index root, of the per-crate
// record file for name, using the fixed name-sharding scheme:
//
//	len(name) == 1 -> 1/<name>
//	len(name) == 2 -> 2/<name>
//	len(name) == 3 -> 3/<name[0]>/<name>
//	otherwise      -> <name[0:2]>/<name[2:4]>/<name>
//
// name is lowercased first so mixed-case crate names still land on their
// canonical shard path.
func EntryPath(name string) string {
	name = strings.ToLower(name)
	switch len(name) {
	case 0:
		return name
	case 1:
		return filepath.Join("1", name)
	case 2:
		return filepath.Join("2", name)
	case 3:
		return filepath.Join("3", name[0:1], name)
	default:
		return filepath.Join(name[0:2], name[2:4], name)
	}
}
