// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/cargoforge/registry/internal/auth"
	"github.com/cargoforge/registry/internal/blobstore"
	"github.com/cargoforge/registry/internal/index"
	"github.com/cargoforge/registry/internal/publish"
	"github.com/cargoforge/registry/internal/registry"
	"github.com/cargoforge/registry/internal/rerror"
	"github.com/cargoforge/registry/internal/search"
	"github.com/cargoforge/registry/internal/store"
)

// ServiceDeps are the collaborators every registry HTTP endpoint shares.
// This is the concrete D behind the generic Dependencies/InitT plumbing
// in rpc.go, specialized to the crate-registry domain.
type ServiceDeps struct {
	Store       *store.DB
	Blobs       blobstore.Store
	Remote      index.Remote
	Search      *search.Engine
	MaxUploadSz int64
}

func (d ServiceDeps) publishDeps() publish.Dependencies {
	return publish.Dependencies{Store: d.Store, Blobs: d.Blobs, Remote: d.Remote, Search: d.Search}
}

func (d ServiceDeps) registryDeps() registry.Dependencies {
	return registry.Dependencies{Store: d.Store, Blobs: d.Blobs, Remote: d.Remote, Search: d.Search}
}

// constInit builds an InitT that always answers with the given deps,
// since this service has no per-request dependency construction.
func constInit(deps ServiceDeps) InitT[ServiceDeps] {
	return func(context.Context) (ServiceDeps, error) { return deps, nil }
}

// wrapStatus attaches the registry's gRPC status mapping to a domain
// error so Handler/CompatHandler translate it to the matching HTTP status.
func wrapStatus(err error) error {
	if err == nil {
		return nil
	}
	return AsStatus(rerror.Code(err), err)
}

func bearerToken(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func pageParams(r *http.Request) (offset, limit int) {
	limit = 10
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 {
		limit = v
	}
	page := 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	return (page - 1) * limit, limit
}

// --- publish ---------------------------------------------------------

type publishRequest struct {
	Body  []byte
	Token string
}

func (req publishRequest) Validate() error {
	if len(req.Body) == 0 {
		return errors.New("empty publish body")
	}
	return nil
}

func (req *publishRequest) DecodeBody(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	req.Body = b
	return nil
}

func (req *publishRequest) BindRequest(r *http.Request) error {
	req.Token = bearerToken(r)
	return nil
}

type publishResponse struct{}

func publishOperation(ctx context.Context, req publishRequest, deps ServiceDeps) (*publishResponse, error) {
	limit := deps.MaxUploadSz
	if limit <= 0 {
		limit = 10 << 20
	}
	if int64(len(req.Body)) > limit {
		return nil, errors.New("upload exceeds configured maximum size")
	}
	if _, err := publish.Publish(ctx, deps.publishDeps(), req.Body, req.Token); err != nil {
		return nil, wrapStatus(err)
	}
	return &publishResponse{}, nil
}

// PublishHandler handles PUT /api/v1/crates/new: a raw bi-framed body,
// always answering HTTP 200 per the publish endpoint's compatibility
// contract, error or not.
func PublishHandler(deps ServiceDeps) http.HandlerFunc {
	return CompatHandler(constInit(deps), publishOperation)
}

// --- download ----------------------------------------------------------

type downloadRequest struct {
	Name    string
	Version string
}

func (req downloadRequest) Validate() error {
	if req.Name == "" || req.Version == "" {
		return errors.New("name and version are required")
	}
	return nil
}

func (req *downloadRequest) BindRequest(r *http.Request) error {
	req.Name = r.PathValue("name")
	req.Version = r.PathValue("version")
	return nil
}

type downloadResponse struct {
	body io.ReadCloser
}

func (resp *downloadResponse) WriteResponse(rw http.ResponseWriter) error {
	defer resp.body.Close()
	rw.Header().Set("Content-Type", "application/octet-stream")
	_, err := io.Copy(rw, resp.body)
	return err
}

func downloadOperation(ctx context.Context, req downloadRequest, deps ServiceDeps) (*downloadResponse, error) {
	body, err := registry.Download(ctx, deps.registryDeps(), req.Name, req.Version)
	if err != nil {
		return nil, wrapStatus(err)
	}
	return &downloadResponse{body: body}, nil
}

// DownloadHandler handles GET /api/v1/crates/{name}/{version}/download.
func DownloadHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), downloadOperation)
}

// --- search / suggest ---------------------------------------------------

type searchRequest struct {
	Query  string
	Offset int
	Limit  int
}

func (req searchRequest) Validate() error { return nil }

func (req *searchRequest) BindRequest(r *http.Request) error {
	req.Query = r.URL.Query().Get("q")
	req.Offset, req.Limit = pageParams(r)
	return nil
}

type searchHit struct {
	Name        string `json:"name"`
	Version     string `json:"newest_version"`
	Description string `json:"description"`
}

type searchResponse struct {
	Crates []searchHit `json:"crates"`
	Meta   struct {
		Total uint64 `json:"total"`
	} `json:"meta"`
}

func searchOperation(ctx context.Context, req searchRequest, deps ServiceDeps) (*searchResponse, error) {
	total, results, err := registry.Search(deps.registryDeps(), req.Query, req.Offset, req.Limit)
	if err != nil {
		return nil, wrapStatus(err)
	}
	resp := &searchResponse{Crates: make([]searchHit, 0, len(results))}
	resp.Meta.Total = total
	for _, res := range results {
		vers := ""
		if res.Latest != nil {
			vers = res.Latest.Vers
		}
		resp.Crates = append(resp.Crates, searchHit{Name: res.Crate.Name, Version: vers, Description: res.Crate.Description})
	}
	return resp, nil
}

// SearchHandler handles GET /api/v1/crates?q=&page=&per_page=.
func SearchHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), searchOperation)
}

type suggestRequest struct {
	Query string
	Limit int
}

func (req suggestRequest) Validate() error { return nil }

func (req *suggestRequest) BindRequest(r *http.Request) error {
	req.Query = r.URL.Query().Get("q")
	_, req.Limit = pageParams(r)
	return nil
}

type suggestResponse struct {
	Suggestions []registry.Suggestion `json:"suggestions"`
}

func suggestOperation(ctx context.Context, req suggestRequest, deps ServiceDeps) (*suggestResponse, error) {
	suggestions, err := registry.Suggest(deps.registryDeps(), req.Query, req.Limit)
	if err != nil {
		return nil, wrapStatus(err)
	}
	return &suggestResponse{Suggestions: suggestions}, nil
}

// SuggestHandler handles GET /api/v1/crates/suggest?q=.
func SuggestHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), suggestOperation)
}

// --- crate info / owners / categories / dependents ----------------------

type nameRequest struct {
	Name string
}

func (req nameRequest) Validate() error {
	if req.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func (req *nameRequest) BindRequest(r *http.Request) error {
	req.Name = r.PathValue("name")
	return nil
}

type infoResponse struct {
	Crate    store.Crate    `json:"crate"`
	Versions []index.Record `json:"versions"`
}

func infoOperation(ctx context.Context, req nameRequest, deps ServiceDeps) (*infoResponse, error) {
	c, records, err := registry.Info(deps.registryDeps(), req.Name)
	if err != nil {
		return nil, wrapStatus(err)
	}
	return &infoResponse{Crate: c, Versions: records}, nil
}

// InfoHandler handles GET /api/v1/crates/{name}.
func InfoHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), infoOperation)
}

type ownersListResponse struct {
	Users []store.Author `json:"users"`
}

func ownersOperation(ctx context.Context, req nameRequest, deps ServiceDeps) (*ownersListResponse, error) {
	owners, err := registry.Owners(deps.registryDeps(), req.Name)
	if err != nil {
		return nil, wrapStatus(err)
	}
	return &ownersListResponse{Users: owners}, nil
}

// OwnersHandler handles GET /api/v1/crates/{name}/owners.
func OwnersHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), ownersOperation)
}

type categoriesRequest struct{}

func (req categoriesRequest) Validate() error { return nil }

type categoriesResponse struct {
	Categories []store.Category `json:"categories"`
}

func categoriesOperation(ctx context.Context, req categoriesRequest, deps ServiceDeps) (*categoriesResponse, error) {
	cats, err := registry.Categories(deps.registryDeps())
	if err != nil {
		return nil, wrapStatus(err)
	}
	return &categoriesResponse{Categories: cats}, nil
}

// CategoriesHandler handles GET /api/v1/categories.
func CategoriesHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), categoriesOperation)
}

type dependentsResponse struct {
	Dependencies []string `json:"dependencies"`
}

func dependentsOperation(ctx context.Context, req nameRequest, deps ServiceDeps) (*dependentsResponse, error) {
	names, err := registry.Dependents(deps.registryDeps(), req.Name)
	if err != nil {
		return nil, wrapStatus(err)
	}
	return &dependentsResponse{Dependencies: names}, nil
}

// DependentsHandler handles GET /api/v1/crates/{name}/reverse_dependencies.
func DependentsHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), dependentsOperation)
}

// --- yank / unyank -------------------------------------------------------

type yankRequest struct {
	Name    string
	Version string
	Token   string
}

func (req yankRequest) Validate() error {
	if req.Name == "" || req.Version == "" {
		return errors.New("name and version are required")
	}
	return nil
}

func (req *yankRequest) BindRequest(r *http.Request) error {
	req.Name = r.PathValue("name")
	req.Version = r.PathValue("version")
	req.Token = bearerToken(r)
	return nil
}

type okResponse struct {
	OK bool `json:"ok"`
}

func yankOperation(ctx context.Context, req yankRequest, deps ServiceDeps) (*okResponse, error) {
	author, err := auth.GetAuthor(deps.Store.Gorm(), req.Token)
	if err != nil {
		return nil, wrapStatus(err)
	}
	if err := registry.Yank(ctx, deps.registryDeps(), req.Name, req.Version, author.ID); err != nil {
		return nil, wrapStatus(err)
	}
	return &okResponse{OK: true}, nil
}

func unyankOperation(ctx context.Context, req yankRequest, deps ServiceDeps) (*okResponse, error) {
	author, err := auth.GetAuthor(deps.Store.Gorm(), req.Token)
	if err != nil {
		return nil, wrapStatus(err)
	}
	if err := registry.Unyank(ctx, deps.registryDeps(), req.Name, req.Version, author.ID); err != nil {
		return nil, wrapStatus(err)
	}
	return &okResponse{OK: true}, nil
}

// YankHandler handles DELETE /api/v1/crates/{name}/{version}/yank.
func YankHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), yankOperation)
}

// UnyankHandler handles PUT /api/v1/crates/{name}/{version}/unyank.
func UnyankHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), unyankOperation)
}

// --- owner management ----------------------------------------------------

type ownersMutationRequest struct {
	Users []string `json:"users"`
	Name  string   `json:"-"`
	Token string   `json:"-"`
}

func (req ownersMutationRequest) Validate() error {
	if req.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func (req *ownersMutationRequest) BindRequest(r *http.Request) error {
	req.Name = r.PathValue("name")
	req.Token = bearerToken(r)
	return nil
}

func addOwnersOperation(ctx context.Context, req ownersMutationRequest, deps ServiceDeps) (*okResponse, error) {
	author, err := auth.GetAuthor(deps.Store.Gorm(), req.Token)
	if err != nil {
		return nil, wrapStatus(err)
	}
	if err := registry.AddOwners(deps.registryDeps(), req.Name, author.ID, req.Users); err != nil {
		return nil, wrapStatus(err)
	}
	return &okResponse{OK: true}, nil
}

func removeOwnersOperation(ctx context.Context, req ownersMutationRequest, deps ServiceDeps) (*okResponse, error) {
	author, err := auth.GetAuthor(deps.Store.Gorm(), req.Token)
	if err != nil {
		return nil, wrapStatus(err)
	}
	if err := registry.RemoveOwners(deps.registryDeps(), req.Name, author.ID, req.Users); err != nil {
		return nil, wrapStatus(err)
	}
	return &okResponse{OK: true}, nil
}

// AddOwnersHandler handles PUT /api/v1/crates/{name}/owners.
func AddOwnersHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), addOwnersOperation)
}

// RemoveOwnersHandler handles DELETE /api/v1/crates/{name}/owners.
func RemoveOwnersHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), removeOwnersOperation)
}

// --- token lifecycle -------------------------------------------------

type generateTokenRequest struct {
	Name  string `json:"name"`
	Token string `json:"-"`
}

func (req generateTokenRequest) Validate() error {
	if req.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func (req *generateTokenRequest) BindRequest(r *http.Request) error {
	req.Token = bearerToken(r)
	return nil
}

type tokenResponse struct {
	APIToken store.AuthorToken `json:"api_token"`
}

func generateTokenOperation(ctx context.Context, req generateTokenRequest, deps ServiceDeps) (*tokenResponse, error) {
	author, err := auth.GetAuthor(deps.Store.Gorm(), req.Token)
	if err != nil {
		return nil, wrapStatus(err)
	}
	tok, err := registry.GenerateToken(deps.registryDeps(), author.ID, req.Name)
	if err != nil {
		return nil, wrapStatus(err)
	}
	return &tokenResponse{APIToken: *tok}, nil
}

// GenerateTokenHandler handles PUT /api/v1/me/tokens.
func GenerateTokenHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), generateTokenOperation)
}

type bearerRequest struct {
	Token string
}

func (req bearerRequest) Validate() error { return nil }

func (req *bearerRequest) BindRequest(r *http.Request) error {
	req.Token = bearerToken(r)
	return nil
}

type listTokensResponse struct {
	APITokens []store.AuthorToken `json:"api_tokens"`
}

func listTokensOperation(ctx context.Context, req bearerRequest, deps ServiceDeps) (*listTokensResponse, error) {
	author, err := auth.GetAuthor(deps.Store.Gorm(), req.Token)
	if err != nil {
		return nil, wrapStatus(err)
	}
	tokens, err := registry.ListTokens(deps.registryDeps(), author.ID)
	if err != nil {
		return nil, wrapStatus(err)
	}
	return &listTokensResponse{APITokens: tokens}, nil
}

// ListTokensHandler handles GET /api/v1/me/tokens.
func ListTokensHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), listTokensOperation)
}

type revokeTokenRequest struct {
	ID    uint
	Token string
}

func (req revokeTokenRequest) Validate() error { return nil }

func (req *revokeTokenRequest) BindRequest(r *http.Request) error {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return errors.Wrap(err, "parsing token id")
	}
	req.ID = uint(id)
	req.Token = bearerToken(r)
	return nil
}

func revokeTokenOperation(ctx context.Context, req revokeTokenRequest, deps ServiceDeps) (*okResponse, error) {
	author, err := auth.GetAuthor(deps.Store.Gorm(), req.Token)
	if err != nil {
		return nil, wrapStatus(err)
	}
	if err := registry.RevokeToken(deps.registryDeps(), author.ID, req.ID); err != nil {
		return nil, wrapStatus(err)
	}
	return &okResponse{OK: true}, nil
}

// RevokeTokenHandler handles DELETE /api/v1/me/tokens/{id}.
func RevokeTokenHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), revokeTokenOperation)
}

// --- author profile (supplemented read path) -----------------------------

type authorResponse struct {
	User store.Author `json:"user"`
}

func meOperation(ctx context.Context, req bearerRequest, deps ServiceDeps) (*authorResponse, error) {
	author, err := auth.GetAuthor(deps.Store.Gorm(), req.Token)
	if err != nil {
		return nil, wrapStatus(err)
	}
	return &authorResponse{User: *author}, nil
}

// MeHandler handles GET /api/v1/me: the bearer-resolved caller's own
// author profile.
func MeHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), meOperation)
}

type authorProfileRequest struct {
	ID uint
}

func (req authorProfileRequest) Validate() error { return nil }

func (req *authorProfileRequest) BindRequest(r *http.Request) error {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return errors.Wrap(err, "parsing author id")
	}
	req.ID = uint(id)
	return nil
}

func authorProfileOperation(ctx context.Context, req authorProfileRequest, deps ServiceDeps) (*authorResponse, error) {
	a, err := registry.AuthorProfile(deps.registryDeps(), req.ID)
	if err != nil {
		return nil, wrapStatus(err)
	}
	return &authorResponse{User: a}, nil
}

// AuthorProfileHandler handles GET /api/v1/authors/{id}: a public
// author-profile read.
func AuthorProfileHandler(deps ServiceDeps) http.HandlerFunc {
	return Handler(constInit(deps), authorProfileOperation)
}
