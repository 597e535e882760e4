// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cargoforge/registry/internal/api"
	"github.com/cargoforge/registry/internal/blobstore"
	"github.com/cargoforge/registry/internal/config"
	"github.com/cargoforge/registry/internal/index"
	"github.com/cargoforge/registry/internal/search"
	"github.com/cargoforge/registry/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "cargoforge-registry [subcommand]",
	Short: "A crates.io-compatible package registry server",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the registry HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the TOML configuration file")
	rootCmd.AddCommand(serveCmd)
}

func buildDeps(ctx context.Context, cfg *config.Config) (api.ServiceDeps, error) {
	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return api.ServiceDeps{}, errors.Wrap(err, "opening relational store")
	}
	blobs, err := blobstore.Open(ctx, cfg.Storage.Backend, cfg.Storage.Path, cfg.Storage.Bucket)
	if err != nil {
		return api.ServiceDeps{}, errors.Wrap(err, "opening blob store")
	}
	remote, err := index.Open(ctx, cfg.Index.Strategy, cfg.Index.Path, cfg.Index.RemoteURL)
	if err != nil {
		return api.ServiceDeps{}, errors.Wrap(err, "opening index")
	}
	if err := remote.Refresh(ctx); err != nil {
		return api.ServiceDeps{}, errors.Wrap(err, "refreshing index")
	}
	engine, err := search.Open(cfg.Search.Path)
	if err != nil {
		return api.ServiceDeps{}, errors.Wrap(err, "opening search engine")
	}
	return api.ServiceDeps{
		Store:       db,
		Blobs:       blobs,
		Remote:      remote,
		Search:      engine,
		MaxUploadSz: cfg.General.MaxUploadSize,
	}, nil
}

func newMux(deps api.ServiceDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/v1/crates/new", api.PublishHandler(deps))
	mux.HandleFunc("GET /api/v1/crates", api.SearchHandler(deps))
	mux.HandleFunc("GET /api/v1/crates/suggest", api.SuggestHandler(deps))
	mux.HandleFunc("GET /api/v1/crates/{name}", api.InfoHandler(deps))
	mux.HandleFunc("GET /api/v1/crates/{name}/owners", api.OwnersHandler(deps))
	mux.HandleFunc("PUT /api/v1/crates/{name}/owners", api.AddOwnersHandler(deps))
	mux.HandleFunc("DELETE /api/v1/crates/{name}/owners", api.RemoveOwnersHandler(deps))
	mux.HandleFunc("GET /api/v1/crates/{name}/reverse_dependencies", api.DependentsHandler(deps))
	mux.HandleFunc("GET /api/v1/crates/{name}/{version}/download", api.DownloadHandler(deps))
	mux.HandleFunc("DELETE /api/v1/crates/{name}/{version}/yank", api.YankHandler(deps))
	mux.HandleFunc("PUT /api/v1/crates/{name}/{version}/unyank", api.UnyankHandler(deps))
	mux.HandleFunc("GET /api/v1/categories", api.CategoriesHandler(deps))
	mux.HandleFunc("GET /api/v1/me", api.MeHandler(deps))
	mux.HandleFunc("GET /api/v1/authors/{id}", api.AuthorProfileHandler(deps))
	mux.HandleFunc("GET /api/v1/me/tokens", api.ListTokensHandler(deps))
	mux.HandleFunc("PUT /api/v1/me/tokens", api.GenerateTokenHandler(deps))
	mux.HandleFunc("DELETE /api/v1/me/tokens/{id}", api.RevokeTokenHandler(deps))
	return mux
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := config.Load(configPath)
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}
	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Search.Close()

	log.Printf("cargoforge-registry listening on %s\n", cfg.General.Addr)
	return http.ListenAndServe(cfg.General.Addr, newMux(deps))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
