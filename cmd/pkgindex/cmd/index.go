package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pkgindex/internal/config"
	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
	"github.com/Aman-CERP/pkgindex/internal/indexing"
	"github.com/Aman-CERP/pkgindex/internal/output"
	"github.com/Aman-CERP/pkgindex/internal/store"
	"github.com/Aman-CERP/pkgindex/internal/ui"
	"github.com/Aman-CERP/pkgindex/pkg/version"
)

type indexOptions struct {
	all         bool
	storage     string
	pageSize    int
	workers     int
	concurrency int
	retries     int
	retryDelay  time.Duration
	noTUI       bool
	noColor     bool
	quiet       bool
}

func newIndexCmd(g *globalOptions) *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [repository-id...]",
		Short: "Build the search index of ingested repositories",
		Long: `Build a fresh index for each repository from the entries stored by
'pkgindex ingest'.

Artifact groups are read page by page, expanded per version, filtered
and annotated with their sibling artifacts (parent descriptor, sources
and javadoc), then submitted one batch per page. Each run writes a new
index that replaces the previous one in
{index.dir}/{storage}/{repository}-index.

A failed run is abandoned. With --retries, retryable failures start the
whole build again in a new index context.`,
		Example: `  pkgindex index releases
  pkgindex index --all --concurrency 4
  pkgindex index releases --page-size 500 --retries 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			return runIndex(ctx, cmd, g, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "Index every repository present in the artifact store")
	cmd.Flags().StringVar(&opts.storage, "storage", "", "Storage id (overrides the declared storage)")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "Groups per page (default from config)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Parallel entry builders per page (default from config)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Repositories indexed at once (default from config)")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "Rebuild attempts after a retryable failure")
	cmd.Flags().DurationVar(&opts.retryDelay, "retry-delay", time.Second, "Delay before the first rebuild")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Line output instead of the interactive view")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Only print the summary")

	return cmd
}

// retryingBuilder restarts a failed build from scratch while the failure
// is retryable.
type retryingBuilder struct {
	builder indexing.Builder
	cfg     pkgerrors.RetryConfig
}

func newRetryingBuilder(b indexing.Builder, retries int, delay time.Duration) indexing.Builder {
	if retries <= 0 {
		return b
	}
	cfg := pkgerrors.DefaultRetryConfig()
	cfg.MaxRetries = retries
	cfg.InitialDelay = delay
	cfg.Jitter = true
	cfg.ShouldRetry = func(err error) bool {
		return pkgerrors.IsRetryable(err) && !pkgerrors.IsFatal(err)
	}
	return &retryingBuilder{builder: b, cfg: cfg}
}

func (r *retryingBuilder) Run(ctx context.Context, storageID, repositoryID string) (*indexing.RunResult, error) {
	var lastErr error
	attempt := 0
	return pkgerrors.RetryWithResult(ctx, r.cfg, func() (*indexing.RunResult, error) {
		attempt++
		if attempt > 1 {
			slog.Warn("index_run_retry",
				slog.String("storage_id", storageID),
				slog.String("repository_id", repositoryID),
				slog.Int("attempt", attempt),
				slog.String("code", pkgerrors.GetCode(lastErr)),
				slog.String("category", string(pkgerrors.GetCategory(lastErr))))
		}
		res, err := r.builder.Run(ctx, storageID, repositoryID)
		lastErr = err
		return res, err
	})
}

func (o indexOptions) apply(cfg *config.Config) {
	if o.pageSize > 0 {
		cfg.Index.PageSize = o.pageSize
	}
	if o.workers > 0 {
		cfg.Index.Workers = o.workers
	}
	if o.concurrency > 0 {
		cfg.Index.Concurrency = o.concurrency
	}
}

func indexTargets(ctx context.Context, cfg *config.Config, st *store.SQLiteArtifactStore, args []string, opts indexOptions) ([]indexing.Target, error) {
	if !opts.all {
		if len(args) == 0 {
			return nil, fmt.Errorf("name a repository id or use --all")
		}
		targets := make([]indexing.Target, 0, len(args))
		for _, id := range args {
			targets = append(targets, resolveTarget(cfg, opts.storage, id))
		}
		return targets, nil
	}

	if len(args) > 0 {
		return nil, fmt.Errorf("--all cannot be combined with repository ids")
	}
	refs, err := st.Repositories(ctx)
	if err != nil {
		return nil, err
	}
	var targets []indexing.Target
	for _, ref := range refs {
		if opts.storage != "" && ref.StorageID != opts.storage {
			continue
		}
		targets = append(targets, indexing.Target{StorageID: ref.StorageID, RepositoryID: ref.RepositoryID})
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("the artifact store holds no repositories; run 'pkgindex ingest' first")
	}
	return targets, nil
}

func runIndex(ctx context.Context, cmd *cobra.Command, g *globalOptions, args []string, opts indexOptions) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	opts.apply(cfg)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	targets, err := indexTargets(ctx, cfg, st, args, opts)
	if err != nil {
		return err
	}

	creators, err := store.CreatorsByName(cfg.Index.Creators)
	if err != nil {
		return err
	}

	backend := store.NewBleveIndexBackend()
	defer func() { _ = backend.Close() }()

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.noTUI), ui.WithNoColor(opts.noColor), ui.WithQuiet(opts.quiet)))
	if err := renderer.Start(ctx); err != nil {
		slog.Warn("failed to start progress renderer", slog.String("error", err.Error()))
	}
	defer func() { _ = renderer.Stop() }()

	ix, err := indexing.NewIndexer(indexing.IndexerConfig{
		IndexRoot: cfg.Index.Dir,
		CacheRoot: cfg.Index.CacheDir,
		PageSize:  cfg.Index.PageSize,
		Workers:   cfg.Index.Workers,
		Options: map[string]string{
			"page_size":    strconv.Itoa(cfg.Index.PageSize),
			"storage_path": cfg.Storage.Path,
			"version":      version.Version,
		},
	}, indexing.IndexerDependencies{
		Groups:   st,
		Backend:  backend,
		Creators: creators,
		Filters:  newFilterSet(cfg),
		Progress: renderer.UpdateProgress,
	})
	if err != nil {
		return err
	}

	runner, err := indexing.NewRunner(indexing.RunnerDependencies{
		Builder:     newRetryingBuilder(ix, opts.retries, opts.retryDelay),
		Renderer:    renderer,
		Concurrency: cfg.Index.Concurrency,
	})
	if err != nil {
		return err
	}

	slog.Info("index_command_started",
		slog.Int("repositories", len(targets)),
		slog.Int("page_size", cfg.Index.PageSize),
		slog.Int("retries", opts.retries))

	results, runErr := runner.IndexAll(ctx, targets)
	_ = renderer.Stop()

	if !opts.quiet {
		out := output.New(cmd.OutOrStdout())
		for _, res := range results {
			out.Statusf("📦", "%s/%s: %d entries, %d pages, context %s",
				res.StorageID, res.RepositoryID, res.Entries, res.Pages, res.ContextID)
		}
	}
	return runErr
}
