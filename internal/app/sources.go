// Package app wires configuration into the metadata sources shared by the
// HTTP server and the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"accountmeta/config"
	"accountmeta/internal/adapters/directory"
	loggeradapter "accountmeta/internal/adapters/logger"
	"accountmeta/internal/adapters/oasisregistry"
	"accountmeta/internal/adapters/pontusx"
	"accountmeta/internal/adapters/query"
	"accountmeta/internal/adapters/registrystore"
	"accountmeta/internal/application/metadata"
	"accountmeta/internal/application/ratelimiter"
	"accountmeta/internal/domain/account"
	"accountmeta/internal/domain/address"
	"accountmeta/internal/domain/scope"
)

// Sources holds the wired metadata sources
type Sources struct {
	Table     *scope.Table
	Primary   *directory.Directory
	Alternate *directory.Directory

	repo *registrystore.SQLiteRepository
}

// NewSources builds the scope table, the snapshot store and both sources
func NewSources(ctx context.Context, cfg *config.Config, logger *loggeradapter.Logger) (*Sources, error) {
	table, err := cfg.ScopeTable()
	if err != nil {
		return nil, err
	}

	var store account.Store
	var repo *registrystore.SQLiteRepository
	if cfg.Database.Path != "" {
		repo, err = openStore(ctx, cfg.Database.Path, logger)
		if err != nil {
			return nil, err
		}
		store = repo
	} else {
		logger.Warn("Database path not set, registry snapshots are not persisted")
	}

	httpClient := &http.Client{Timeout: cfg.Registry.RequestTimeout}
	queryCfg := query.Config{
		StaleTime:       cfg.Query.StaleTime,
		ErrorRetryAfter: cfg.Query.ErrorRetryAfter,
		FetchTimeout:    cfg.Query.FetchTimeout,
		GCTime:          cfg.Query.GCTime,
	}

	oasisClient := oasisregistry.NewClient(
		httpClient,
		cfg.Registry.OasisURLTemplate,
		ratelimiter.NewRateLimiter(cfg.Registry.RateLimitCalls, cfg.Registry.RateLimitWindow),
	)
	pontusxClient := pontusx.NewClient(
		httpClient,
		cfg.Registry.PontusXURL,
		ratelimiter.NewRateLimiter(cfg.Registry.RateLimitCalls, cfg.Registry.RateLimitWindow),
	)

	return &Sources{
		Table:     table,
		Primary:   oasisregistry.NewSource(oasisClient, store, queryCfg, logger),
		Alternate: pontusx.NewSource(pontusxClient, store, queryCfg, logger),
		repo:      repo,
	}, nil
}

// Service returns the metadata service over the sources
func (s *Sources) Service(logger *loggeradapter.Logger) *metadata.Service {
	return metadata.NewService(s.Table, s.Primary, s.Alternate, address.Normalize, logger)
}

// For returns the source serving the address book of s
func (s *Sources) For(sc scope.Scope) *directory.Directory {
	if s.Table.IsAlternate(sc.Layer) {
		return s.Alternate
	}
	return s.Primary
}

// Close waits for background fetches and closes the store
func (s *Sources) Close() error {
	s.Primary.Close()
	s.Alternate.Close()
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func openStore(ctx context.Context, path string, logger *loggeradapter.Logger) (*registrystore.SQLiteRepository, error) {
	// Ensure data directory exists
	dataDir := filepath.Dir(path)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo, err := registrystore.NewSQLiteRepository(path)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, err
	}

	logger.Info("Registry store ready", zap.String("path", path))
	return repo, nil
}
