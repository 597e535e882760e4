// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/cargoforge/registry/internal/index"
)

// DependencyMeta is one dependency entry in the uploaded metadata JSON.
type DependencyMeta struct {
	Name               string   `json:"name"`
	ExplicitNameInToml string   `json:"explicit_name_in_toml,omitempty"`
	VersionReq         string   `json:"version_req"`
	Features           []string `json:"features"`
	Optional           bool     `json:"optional"`
	DefaultFeatures    bool     `json:"default_features"`
	Target             string   `json:"target,omitempty"`
	Kind               string   `json:"kind"`
	Registry           string   `json:"registry,omitempty"`
}

// BadgeMeta is one badge entry in the uploaded metadata JSON.
type BadgeMeta struct {
	BadgeType  string            `json:"badge_type"`
	Attributes map[string]string `json:"attributes"`
}

// Meta is the parsed upload metadata (the distilled spec's CrateMeta).
type Meta struct {
	Name          string            `json:"name"`
	Vers          string            `json:"vers"`
	Deps          []DependencyMeta  `json:"deps"`
	Features      map[string][]string `json:"features"`
	Authors       []string          `json:"authors"`
	Description   string            `json:"description"`
	Documentation string            `json:"documentation"`
	Homepage      string            `json:"homepage"`
	Readme        string            `json:"readme"`
	ReadmeFile    string            `json:"readme_file"`
	Keywords      []string          `json:"keywords"`
	Categories    []string          `json:"categories"`
	License       string            `json:"license"`
	LicenseFile   string            `json:"license_file"`
	Repository    string            `json:"repository"`
	Links         string            `json:"links"`
	Badges        []BadgeMeta       `json:"badges"`
}

// ParseMeta decodes the metadata section into a Meta value.
func ParseMeta(raw []byte) (Meta, error) {
	var m Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return Meta{}, errors.Wrap(err, "parsing upload metadata")
	}
	return m, nil
}

// toIndexDependencies applies the explicit_name_in_toml rename mapping:
// if set, the record's dependency name is the explicit name and the
// original name becomes the `package` field; otherwise `package` is
// absent. This mechanical transform does not reject a rename that
// collides with an existing dependency name.
func (m Meta) toIndexDependencies() []index.Dependency {
	deps := make([]index.Dependency, 0, len(m.Deps))
	for _, d := range m.Deps {
		name := d.Name
		pkg := ""
		if d.ExplicitNameInToml != "" {
			pkg = d.Name
			name = d.ExplicitNameInToml
		}
		kind := d.Kind
		if kind == "" {
			kind = index.KindNormal
		}
		deps = append(deps, index.Dependency{
			Name:            name,
			Req:             d.VersionReq,
			Features:        d.Features,
			Optional:        d.Optional,
			DefaultFeatures: d.DefaultFeatures,
			Target:          d.Target,
			Kind:            kind,
			Registry:        d.Registry,
			Package:         pkg,
		})
	}
	return deps
}
