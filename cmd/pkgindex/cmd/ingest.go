package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pkgindex/internal/config"
	"github.com/Aman-CERP/pkgindex/internal/ingest"
	"github.com/Aman-CERP/pkgindex/internal/output"
	"github.com/Aman-CERP/pkgindex/internal/ui"
)

type ingestOptions struct {
	all         bool
	path        string
	format      string
	storage     string
	skipInvalid bool
	batchSize   int
	noColor     bool
	quiet       bool
}

func newIngestCmd(g *globalOptions) *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest [repository-id...]",
		Short: "Parse repository files and store their coordinates",
		Long: `Walk a repository directory, derive the coordinates of every file from
its path and store the entries in the artifact database.

Repositories are declared in .pkgindex.yaml. An undeclared repository
can be ingested with --path and --format.

Checksums, signatures and repository metadata that carry no coordinates
are skipped. Other files that fail to parse fail the run unless
--skip-invalid is set.`,
		Example: `  pkgindex ingest releases
  pkgindex ingest --all
  pkgindex ingest scratch --path ./m2 --format maven --skip-invalid`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			return runIngest(ctx, cmd, g, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "Ingest every declared repository")
	cmd.Flags().StringVar(&opts.path, "path", "", "Repository directory (overrides the declared path)")
	cmd.Flags().StringVar(&opts.format, "format", "", "Coordinate format: maven, pypi (overrides the declared format)")
	cmd.Flags().StringVar(&opts.storage, "storage", "", "Storage id (overrides the declared storage)")
	cmd.Flags().BoolVar(&opts.skipInvalid, "skip-invalid", false, "Log unparseable files instead of failing")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", ingest.DefaultBatchSize, "Entries saved per transaction")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored progress output")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Only print the summary")

	return cmd
}

func ingestTargets(cfg *config.Config, args []string, opts ingestOptions) ([]config.RepositoryConfig, error) {
	if opts.all {
		if len(args) > 0 {
			return nil, fmt.Errorf("--all cannot be combined with repository ids")
		}
		if len(cfg.Repositories) == 0 {
			return nil, fmt.Errorf("no repositories declared in %s", config.ProjectConfigName)
		}
		return cfg.Repositories, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("name a repository id or use --all")
	}
	if len(args) > 1 && (opts.path != "" || opts.format != "") {
		return nil, fmt.Errorf("--path and --format apply to a single repository")
	}

	repos := make([]config.RepositoryConfig, 0, len(args))
	for _, id := range args {
		repo, declared := cfg.Repository(id)
		if !declared {
			repo = config.RepositoryConfig{ID: id}
		}
		if opts.path != "" {
			repo.Path = opts.path
		}
		if opts.format != "" {
			repo.Format = opts.format
		}
		if repo.Path == "" || repo.Format == "" {
			return nil, fmt.Errorf("repository %s is not declared; pass --path and --format", id)
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

func runIngest(ctx context.Context, cmd *cobra.Command, g *globalOptions, args []string, opts ingestOptions) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	repos, err := ingestTargets(cfg, args, opts)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	// Summary lines are printed between repositories, so progress stays line based.
	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(true), ui.WithNoColor(opts.noColor), ui.WithQuiet(opts.quiet)))
	if err := renderer.Start(ctx); err != nil {
		slog.Warn("failed to start progress renderer", slog.String("error", err.Error()))
	}
	defer func() { _ = renderer.Stop() }()

	svc, err := ingest.NewService(newRegistry(cfg), st, ingest.Options{
		BatchSize:   opts.batchSize,
		SkipInvalid: opts.skipInvalid,
		Filters:     newFilterSet(cfg),
		Progress:    renderer.UpdateProgress,
	})
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	var errs []error
	for _, repo := range repos {
		target := resolveTarget(cfg, opts.storage, repo.ID)

		slog.Info("ingest_started",
			slog.String("storage_id", target.StorageID),
			slog.String("repository_id", repo.ID),
			slog.String("format", repo.Format),
			slog.String("path", repo.Path))

		res, err := svc.IngestDir(ctx, target.StorageID, repo.ID, repo.Format, repo.Path)
		if res != nil {
			out.Successf("%s: %d entries saved (%d scanned, %d auxiliary, %d invalid) in %s",
				target, res.Saved, res.Scanned, res.Auxiliary, res.Invalid, res.Duration.Round(time.Millisecond))
			if res.Removed > 0 {
				out.Warningf("%s: %d entries removed, their files are gone", target, res.Removed)
			}
		}
		if err != nil {
			renderer.AddError(ui.ErrorEvent{Repository: repo.ID, Err: err})
			errs = append(errs, fmt.Errorf("%s: %w", target, err))
		}
	}

	return errors.Join(errs...)
}
