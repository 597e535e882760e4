// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/cargoforge/registry/internal/auth"
	"github.com/cargoforge/registry/internal/blobstore"
	"github.com/cargoforge/registry/internal/index"
	"github.com/cargoforge/registry/internal/markdown"
	"github.com/cargoforge/registry/internal/rerror"
	"github.com/cargoforge/registry/internal/search"
	"github.com/cargoforge/registry/internal/semver"
	"github.com/cargoforge/registry/internal/store"
)

// Dependencies are the collaborators the pipeline orchestrates. Blobs,
// index and search are outside the DB transaction; Store is transacted
// via Run.
type Dependencies struct {
	Store  *store.DB
	Blobs  blobstore.Store
	Remote index.Remote
	Search *search.Engine
}

// Result is the pipeline's success output, an empty object on the wire
// per the publish endpoint's compatibility contract.
type Result struct{}

// Publish runs the full publication pipeline over body (the framed
// upload) authenticated by bearer token, in one DB transaction plus the
// index/blob/search side effects that follow it.
func Publish(ctx context.Context, deps Dependencies, body []byte, bearer string) (Result, error) {
	frame, err := ParseFrame(body)
	if err != nil {
		return Result{}, err
	}
	meta, err := ParseMeta(frame.Meta)
	if err != nil {
		return Result{}, err
	}
	cksum := sha256.Sum256(frame.Tarball)
	digest := hex.EncodeToString(cksum[:])

	canonical := store.Fold(meta.Name)

	var crate *store.Crate
	var isNewCrate bool
	err = deps.Store.Run(ctx, func(tx *gorm.DB) error {
		author, err := auth.GetAuthor(tx, bearer)
		if err != nil {
			return err
		}

		existing, err := store.GetCrateByCanonicalName(tx, canonical)
		if err != nil {
			return err
		}

		if existing == nil {
			isNewCrate = true
			crate, err = store.CreateCrate(tx, meta.Name, canonical, meta.Description, meta.Repository, meta.Documentation)
			if err != nil {
				return err
			}
			if err := store.AddCrateAuthor(tx, crate.ID, author.ID); err != nil {
				return err
			}
		} else {
			crate = existing
			owned, err := store.IsCrateAuthor(tx, crate.ID, author.ID)
			if err != nil {
				return err
			}
			if !owned {
				return &rerror.CrateNotOwned{Name: meta.Name, Author: author.Email}
			}
			latest, err := deps.Remote.Tree().LatestRecord(meta.Name)
			if err != nil {
				var notFound *rerror.CrateNotFound
				if !errors.As(err, &notFound) {
					return err
				}
			}
			if latest != nil && !semver.GreaterThan(meta.Vers, latest.Vers) {
				return &rerror.VersionTooLow{Name: meta.Name, Hosted: latest.Vers, Published: meta.Vers}
			}
			if err := store.UpdateCrateMeta(tx, crate.ID, meta.Description, meta.Repository, meta.Documentation); err != nil {
				return err
			}
		}

		if owner, err := store.CheckLinksCollision(tx, crate.ID, meta.Links); err != nil {
			return err
		} else if owner != 0 {
			return &rerror.LinksCollision{Name: meta.Name, Links: meta.Links, Owner: fmt.Sprintf("#%d", owner)}
		}
		if err := store.ClaimLinks(tx, crate.ID, meta.Links); err != nil {
			return err
		}

		if err := store.ReplaceKeywords(tx, crate.ID, meta.Keywords); err != nil {
			return err
		}
		if err := store.ReplaceCategories(tx, crate.ID, meta.Categories); err != nil {
			return err
		}
		badges := make([]store.Badge, 0, len(meta.Badges))
		for _, b := range meta.Badges {
			attrs, err := store.EncodeBadgeAttributes(b.Attributes)
			if err != nil {
				return err
			}
			badges = append(badges, store.Badge{BadgeType: b.BadgeType, Attributes: attrs})
		}
		return store.ReplaceBadges(tx, crate.ID, badges)
	})
	if err != nil {
		return Result{}, err
	}

	readmeText, hasReadme, err := extractReadme(frame.Tarball, meta.Name, meta.Vers)
	if err != nil {
		return Result{}, err
	}
	var readmeHTML string
	if hasReadme {
		readmeHTML, err = markdown.Render(readmeText)
		if err != nil {
			return Result{}, err
		}
	}

	if err := deps.Blobs.Put(ctx, blobstore.Key{Name: meta.Name, Version: meta.Vers, Kind: blobstore.KindCrate}, bytes.NewReader(frame.Tarball)); err != nil {
		return Result{}, errors.Wrap(err, "storing tarball")
	}
	if hasReadme {
		if err := deps.Blobs.Put(ctx, blobstore.Key{Name: meta.Name, Version: meta.Vers, Kind: blobstore.KindReadme}, bytes.NewReader([]byte(readmeHTML))); err != nil {
			return Result{}, errors.Wrap(err, "storing rendered readme")
		}
	}

	record := index.Record{
		Name:     meta.Name,
		Vers:     meta.Vers,
		Deps:     meta.toIndexDependencies(),
		Cksum:    digest,
		Features: meta.Features,
		Yanked:   false,
		Links:    meta.Links,
	}
	if record.Features == nil {
		record.Features = map[string][]string{}
	}
	if err := deps.Remote.Tree().AddRecord(record); err != nil {
		return Result{}, err
	}

	verb := "Updating"
	if isNewCrate {
		verb = "Adding"
	}
	msg := fmt.Sprintf("%s crate `%s#%s`", verb, meta.Name, meta.Vers)
	if err := deps.Remote.CommitAndPush(ctx, msg); err != nil {
		return Result{}, errors.Wrap(err, "pushing index")
	}

	if deps.Search != nil {
		doc := search.DocumentFromCrate(*crate, meta.Keywords, meta.Categories)
		if err := deps.Search.IndexDocument(doc); err != nil {
			log.Printf("publish: best-effort search index of %s failed: %v", meta.Name, err)
		} else if err := deps.Search.Commit(); err != nil {
			log.Printf("publish: best-effort search commit of %s failed: %v", meta.Name, err)
		}
	}

	return Result{}, nil
}
