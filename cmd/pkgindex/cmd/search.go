package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
	"github.com/Aman-CERP/pkgindex/internal/indexing"
	"github.com/Aman-CERP/pkgindex/internal/output"
	"github.com/Aman-CERP/pkgindex/internal/store"
)

type searchOptions struct {
	storage string
	limit   int
	format  string // "text", "json"
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <repository-id> <query>",
		Short: "Search a repository index",
		Long: `Search the index built by 'pkgindex index' with a query string.

Coordinates are split on . - _ : / and camelCase, so "hikari" finds
HikariCP and "commons" finds commons-lang3. Fields can be targeted
directly: group_id, artifact_id, version, classifier, extension,
distribution, platform, has_sources, has_javadoc, has_parent_descriptor.`,
		Example: `  pkgindex search releases commons
  pkgindex search releases "+artifact_id:guava +classifier:sources"
  pkgindex search pypi-hosted "platform:manylinux1" --format json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, g, args[0], strings.Join(args[1:], " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.storage, "storage", "", "Storage id (overrides the declared storage)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

// searchResult is the JSON shape of one hit.
type searchResult struct {
	Path   string         `json:"path"`
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields"`
}

func runSearch(ctx context.Context, cmd *cobra.Command, g *globalOptions, repositoryID, query string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return pkgerrors.ValidationError(fmt.Sprintf("invalid format: %s (use: text, json)", opts.format), nil)
	}
	if opts.limit <= 0 {
		return pkgerrors.ValidationError(fmt.Sprintf("invalid limit: %d (must be positive)", opts.limit), nil)
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	backend := store.NewBleveIndexBackend()
	defer func() { _ = backend.Close() }()

	target := resolveTarget(cfg, opts.storage, repositoryID)
	ic, err := backend.OpenContext(indexing.IndexDir(cfg.Index.Dir, target.StorageID, target.RepositoryID))
	if err != nil {
		return err
	}

	slog.Info("search_started",
		slog.String("storage_id", target.StorageID),
		slog.String("repository_id", repositoryID),
		slog.String("context_id", ic.ID),
		slog.String("query", query),
		slog.Int("limit", opts.limit))

	hits, err := backend.Search(ctx, ic, query, opts.limit)
	if err != nil {
		return err
	}
	slog.Info("search_complete", slog.Int("results", len(hits)))

	out := output.New(cmd.OutOrStdout())
	if opts.format == "json" {
		results := make([]searchResult, len(hits))
		for i, h := range hits {
			results[i] = searchResult{Path: h.ID, Score: h.Score, Fields: h.Fields}
		}
		return out.JSON(results)
	}

	if len(hits) == 0 {
		out.Statusf("🔍", "No results for %q in %s", query, target)
		return nil
	}

	rows := make([][]string, len(hits))
	for i, h := range hits {
		rows[i] = []string{
			fmt.Sprintf("%.3f", h.Score),
			h.ID,
			field(h.Fields, "version"),
			siblingSummary(h.Fields),
		}
	}
	out.Table([]string{"SCORE", "PATH", "VERSION", "SIBLINGS"}, rows)
	return nil
}

func field(fields map[string]any, name string) string {
	v, ok := fields[name]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// siblingSummary lists the sibling flags that are set, e.g. "pom,sources".
func siblingSummary(fields map[string]any) string {
	var set []string
	for _, f := range []struct{ field, label string }{
		{"has_parent_descriptor", "pom"},
		{"has_sources", "sources"},
		{"has_javadoc", "javadoc"},
	} {
		if b, ok := fields[f.field].(bool); ok && b {
			set = append(set, f.label)
		}
	}
	if len(set) == 0 {
		return "-"
	}
	return strings.Join(set, ",")
}
