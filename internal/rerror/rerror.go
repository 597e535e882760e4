// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package rerror defines the registry core's distinguished error kinds and
// their mapping onto gRPC status codes for HTTP translation at the edges.
package rerror

import (
	"fmt"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
)

// CrateNotFound indicates the named crate has no DB row or no index entry.
type CrateNotFound struct {
	Name string
}

func (e *CrateNotFound) Error() string {
	return fmt.Sprintf("crate not found: %s", e.Name)
}

// CrateNotOwned indicates the author does not own the crate being mutated.
type CrateNotOwned struct {
	Name   string
	Author string
}

func (e *CrateNotOwned) Error() string {
	return fmt.Sprintf("%s is not an owner of crate %s", e.Author, e.Name)
}

// VersionTooLow indicates a publish did not strictly exceed the hosted max.
type VersionTooLow struct {
	Name      string
	Hosted    string
	Published string
}

func (e *VersionTooLow) Error() string {
	return fmt.Sprintf("crate %s: published version %s must exceed hosted version %s", e.Name, e.Published, e.Hosted)
}

// InvalidToken indicates a missing or unrecognized bearer token.
type InvalidToken struct{}

func (e *InvalidToken) Error() string { return "invalid or missing token" }

// MissingQueryParams indicates required query parameters were absent.
type MissingQueryParams struct {
	Names []string
}

func (e *MissingQueryParams) Error() string {
	return fmt.Sprintf("missing required query parameters: %v", e.Names)
}

// LinksCollision indicates a published crate's `links` value is already
// claimed by a different crate.
type LinksCollision struct {
	Name  string
	Links string
	Owner string
}

func (e *LinksCollision) Error() string {
	return fmt.Sprintf("links value %q is already claimed by crate %s", e.Links, e.Owner)
}

// LastOwner indicates a removal would leave a crate with zero owners.
type LastOwner struct {
	Name string
}

func (e *LastOwner) Error() string {
	return fmt.Sprintf("crate %s must retain at least one owner", e.Name)
}

// AuthorNotFound indicates no author row exists for the given id.
type AuthorNotFound struct {
	ID uint
}

func (e *AuthorNotFound) Error() string {
	return fmt.Sprintf("author not found: #%d", e.ID)
}

// Code maps a registry error onto a gRPC status code for HTTP translation.
// Unrecognized errors map to codes.Internal.
func Code(err error) codes.Code {
	switch {
	case errors.As(err, new(*CrateNotFound)):
		return codes.NotFound
	case errors.As(err, new(*CrateNotOwned)):
		return codes.PermissionDenied
	case errors.As(err, new(*VersionTooLow)):
		return codes.AlreadyExists
	case errors.As(err, new(*InvalidToken)):
		return codes.Unauthenticated
	case errors.As(err, new(*MissingQueryParams)):
		return codes.InvalidArgument
	case errors.As(err, new(*LinksCollision)):
		return codes.AlreadyExists
	case errors.As(err, new(*LastOwner)):
		return codes.FailedPrecondition
	case errors.As(err, new(*AuthorNotFound)):
		return codes.NotFound
	default:
		return codes.Internal
	}
}
