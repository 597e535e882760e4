// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/cargoforge/registry/internal/blobstore"
	"github.com/cargoforge/registry/internal/index"
	"github.com/cargoforge/registry/internal/search"
	"github.com/cargoforge/registry/internal/store"
)

type fakeRemote struct{ tr *index.Tree }

func (r *fakeRemote) URL() string                                      { return "" }
func (r *fakeRemote) Refresh(ctx context.Context) error                 { return nil }
func (r *fakeRemote) Tree() *index.Tree                                 { return r.tr }
func (r *fakeRemote) CommitAndPush(ctx context.Context, msg string) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	db, err := store.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	blobs, err := blobstore.Open(context.Background(), "filesystem", t.TempDir(), "")
	if err != nil {
		t.Fatalf("blobstore.Open() error = %v", err)
	}
	engine, err := search.Open(filepath.Join(t.TempDir(), "search.bleve"))
	if err != nil {
		t.Fatalf("search.Open() error = %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	a := &store.Author{Email: "a@example.com", Name: "a"}
	if err := store.CreateAuthor(db.Gorm(), a, "deadbeef"); err != nil {
		t.Fatalf("CreateAuthor() error = %v", err)
	}
	const token = "tok12345678901234567890"
	if _, err := store.CreateAuthorToken(db.Gorm(), a.ID, "ci", token); err != nil {
		t.Fatalf("CreateAuthorToken() error = %v", err)
	}

	deps := ServiceDeps{
		Store:  db,
		Blobs:  blobs,
		Remote: &fakeRemote{tr: index.NewTree(t.TempDir())},
		Search: engine,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/v1/crates/new", PublishHandler(deps))
	mux.HandleFunc("GET /api/v1/crates/{name}", InfoHandler(deps))
	mux.HandleFunc("GET /api/v1/crates/{name}/owners", OwnersHandler(deps))
	mux.HandleFunc("PUT /api/v1/crates/{name}/owners", AddOwnersHandler(deps))
	mux.HandleFunc("DELETE /api/v1/crates/{name}/owners", RemoveOwnersHandler(deps))
	mux.HandleFunc("GET /api/v1/crates/{name}/{version}/download", DownloadHandler(deps))
	mux.HandleFunc("DELETE /api/v1/crates/{name}/{version}/yank", YankHandler(deps))
	mux.HandleFunc("PUT /api/v1/crates/{name}/{version}/unyank", UnyankHandler(deps))
	mux.HandleFunc("GET /api/v1/me/tokens", ListTokensHandler(deps))
	mux.HandleFunc("PUT /api/v1/me/tokens", GenerateTokenHandler(deps))
	mux.HandleFunc("GET /api/v1/me", MeHandler(deps))
	mux.HandleFunc("GET /api/v1/authors/{id}", AuthorProfileHandler(deps))

	return httptest.NewServer(mux), token
}

func buildUploadFrame(t *testing.T, meta map[string]any, tarball []byte) []byte {
	t.Helper()
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal meta: %v", err)
	}
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(metaJSON)))
	buf.Write(lenBuf[:])
	buf.Write(metaJSON)
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(tarball)))
	buf.Write(lenBuf[:])
	buf.Write(tarball)
	return buf.Bytes()
}

func doReq(t *testing.T, srv *httptest.Server, method, path, token string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	return resp
}

func TestPublishThenDownloadOverHTTP(t *testing.T) {
	srv, token := newTestServer(t)
	defer srv.Close()

	body := buildUploadFrame(t, map[string]any{
		"name": "widget", "vers": "0.1.0",
		"deps": []any{}, "features": map[string]any{}, "authors": []string{"a"},
	}, []byte("fake tarball bytes"))

	resp := doReq(t, srv, http.MethodPut, "/api/v1/crates/new", token, body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish status = %d, want 200", resp.StatusCode)
	}

	resp = doReq(t, srv, http.MethodGet, "/api/v1/crates/widget/0.1.0/download", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d, want 200", resp.StatusCode)
	}
	got, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading download body: %v", err)
	}
	if string(got) != "fake tarball bytes" {
		t.Errorf("download body = %q, want %q", got, "fake tarball bytes")
	}
}

func TestPublishAlwaysRespondsOKOnFailure(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	body := buildUploadFrame(t, map[string]any{"name": "widget", "vers": "0.1.0"}, []byte("x"))
	resp := doReq(t, srv, http.MethodPut, "/api/v1/crates/new", "not-a-real-token", body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (compat contract)", resp.StatusCode)
	}
	var envelope struct {
		Errors []struct{ Detail string } `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	if len(envelope.Errors) == 0 {
		t.Error("expected a non-empty error envelope for an invalid token")
	}
}

func TestYankUnyankAndOwnersOverHTTP(t *testing.T) {
	srv, token := newTestServer(t)
	defer srv.Close()

	body := buildUploadFrame(t, map[string]any{
		"name": "widget", "vers": "0.1.0",
		"deps": []any{}, "features": map[string]any{}, "authors": []string{"a"},
	}, []byte("tarball"))
	resp := doReq(t, srv, http.MethodPut, "/api/v1/crates/new", token, body)
	resp.Body.Close()

	resp = doReq(t, srv, http.MethodDelete, "/api/v1/crates/widget/0.1.0/yank", token, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("yank status = %d, want 200", resp.StatusCode)
	}

	resp = doReq(t, srv, http.MethodGet, "/api/v1/crates/widget", "", nil)
	defer resp.Body.Close()
	var info struct {
		Versions []struct {
			Yanked bool `json:"yanked"`
		} `json:"versions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decoding info: %v", err)
	}
	if len(info.Versions) != 1 || !info.Versions[0].Yanked {
		t.Errorf("versions after yank = %+v, want one yanked record", info.Versions)
	}

	resp = doReq(t, srv, http.MethodGet, "/api/v1/crates/widget/owners", "", nil)
	defer resp.Body.Close()
	var owners struct {
		Users []store.Author `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&owners); err != nil {
		t.Fatalf("decoding owners: %v", err)
	}
	if len(owners.Users) != 1 || owners.Users[0].Email != "a@example.com" {
		t.Errorf("owners = %+v, want one owner a@example.com", owners.Users)
	}
}

func TestMeAndAuthorProfileOverHTTP(t *testing.T) {
	srv, token := newTestServer(t)
	defer srv.Close()

	resp := doReq(t, srv, http.MethodGet, "/api/v1/me", token, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d, want 200", resp.StatusCode)
	}
	var me struct {
		User store.Author `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		t.Fatalf("decoding me: %v", err)
	}
	if me.User.Email != "a@example.com" {
		t.Errorf("me.User.Email = %q, want a@example.com", me.User.Email)
	}

	resp = doReq(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/authors/%d", me.User.ID), "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("author profile status = %d, want 200", resp.StatusCode)
	}
	var profile struct {
		User store.Author `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		t.Fatalf("decoding author profile: %v", err)
	}
	if profile.User.Email != "a@example.com" {
		t.Errorf("profile.User.Email = %q, want a@example.com", profile.User.Email)
	}

	resp = doReq(t, srv, http.MethodGet, "/api/v1/authors/999999", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown author profile status = %d, want 404", resp.StatusCode)
	}
}

func TestTokenLifecycleOverHTTP(t *testing.T) {
	srv, token := newTestServer(t)
	defer srv.Close()

	newTokBody, _ := json.Marshal(map[string]any{"name": "deploy"})
	resp := doReq(t, srv, http.MethodPut, "/api/v1/me/tokens", token, newTokBody)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate token status = %d, want 200", resp.StatusCode)
	}

	resp = doReq(t, srv, http.MethodGet, "/api/v1/me/tokens", token, nil)
	defer resp.Body.Close()
	var list struct {
		Tokens []store.AuthorToken `json:"api_tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decoding token list: %v", err)
	}
	if len(list.Tokens) != 2 {
		t.Errorf("token count = %d, want 2 (ci + deploy)", len(list.Tokens))
	}
}
