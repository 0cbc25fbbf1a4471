package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pkgindex/internal/config"
	"github.com/Aman-CERP/pkgindex/internal/coordinates"
	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
	"github.com/Aman-CERP/pkgindex/internal/indexing"
	"github.com/Aman-CERP/pkgindex/internal/store"
)

// loadConfig loads the configuration of the project containing --dir.
func (g *globalOptions) loadConfig() (*config.Config, error) {
	root, err := config.FindProjectRoot(g.dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, pkgerrors.ConfigError("failed to load configuration", err).
			WithDetail("root", root).
			WithSuggestion("Fix the file or run 'pkgindex config init --project --force' to start over")
	}
	slog.Debug("config_loaded",
		slog.String("root", root),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("index_dir", cfg.Index.Dir))
	return cfg, nil
}

// signalContext cancels on Ctrl+C so long runs stop between pages.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func openStore(cfg *config.Config) (*store.SQLiteArtifactStore, error) {
	st, err := store.NewSQLiteArtifactStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}
	return st, nil
}

// newRegistry returns the parser registry, LRU-cached unless disabled.
func newRegistry(cfg *config.Config) *coordinates.Registry {
	registry := coordinates.DefaultRegistry()
	if cfg.Parsing.CacheSize > 0 {
		return registry.Cached(cfg.Parsing.CacheSize)
	}
	return registry
}

// newFilterSet applies the per-format denylist overrides.
func newFilterSet(cfg *config.Config) *indexing.FilterSet {
	filters := indexing.NewFilterSet(nil)
	for _, format := range cfg.DenylistFormats() {
		rule := cfg.Indexing.Denylist[format]
		filters.Override(coordinates.Format(strings.ToLower(format)), indexing.NewFilter(rule.Names, rule.Suffixes))
	}
	return filters
}

// resolveTarget maps a repository id to its storage, preferring the
// explicit --storage flag, then the declared repository, then the default.
func resolveTarget(cfg *config.Config, storageFlag, repositoryID string) indexing.Target {
	storageID := storageFlag
	if storageID == "" {
		if repo, ok := cfg.Repository(repositoryID); ok {
			storageID = cfg.RepositoryStorageID(repo)
		} else {
			storageID = cfg.Storage.ID
		}
	}
	return indexing.Target{StorageID: storageID, RepositoryID: repositoryID}
}
