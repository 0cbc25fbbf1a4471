package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
	"github.com/Aman-CERP/pkgindex/internal/ui"
)

// Target names one repository to index.
type Target struct {
	StorageID    string
	RepositoryID string
}

func (t Target) String() string {
	return t.StorageID + "/" + t.RepositoryID
}

// Builder runs one repository index build.
type Builder interface {
	Run(ctx context.Context, storageID, repositoryID string) (*RunResult, error)
}

// RunnerDependencies contains the injected dependencies for Runner.
type RunnerDependencies struct {
	// Builder indexes a single repository (required).
	Builder Builder

	// Renderer displays errors and the final summary (defaults to ui.Nop).
	Renderer ui.Renderer

	// Concurrency bounds the repositories indexed at once (default 1).
	Concurrency int
}

// Runner indexes several repositories, each into its own context.
type Runner struct {
	builder     Builder
	renderer    ui.Renderer
	concurrency int
}

// NewRunner creates a Runner with injected dependencies.
func NewRunner(deps RunnerDependencies) (*Runner, error) {
	if deps.Builder == nil {
		return nil, fmt.Errorf("builder is required")
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = ui.Nop()
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Runner{
		builder:     deps.Builder,
		renderer:    renderer,
		concurrency: concurrency,
	}, nil
}

// IndexAll indexes every target. A failing repository does not stop the
// others; the returned results hold the successful runs in target order
// and the error joins every failure.
func (r *Runner) IndexAll(ctx context.Context, targets []Target) ([]*RunResult, error) {
	seen := make(map[Target]struct{}, len(targets))
	for _, t := range targets {
		if _, dup := seen[t]; dup {
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidInput,
				fmt.Sprintf("repository %s listed twice", t), nil).
				WithDetail("storage_id", t.StorageID).
				WithDetail("repository_id", t.RepositoryID)
		}
		seen[t] = struct{}{}
	}

	start := time.Now()
	results := make([]*RunResult, len(targets))
	errs := make([]error, len(targets))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, t := range targets {
		g.Go(func() error {
			res, err := r.builder.Run(ctx, t.StorageID, t.RepositoryID)
			if err != nil {
				slog.Error("index run failed",
					slog.String("storage_id", t.StorageID),
					slog.String("repository_id", t.RepositoryID),
					slog.String("error", err.Error()))
				r.renderer.AddError(ui.ErrorEvent{Repository: t.RepositoryID, Err: err})
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	stats := ui.CompletionStats{Duration: time.Since(start)}
	succeeded := make([]*RunResult, 0, len(results))
	for i, res := range results {
		if errs[i] != nil {
			stats.Errors++
			continue
		}
		succeeded = append(succeeded, res)
		stats.Repositories++
		stats.Pages += res.Pages
		stats.Groups += res.Groups
		stats.Entries += res.Entries
		stats.Skipped += res.Skipped
	}
	r.renderer.Complete(stats)

	return succeeded, errors.Join(errs...)
}

var _ Builder = (*Indexer)(nil)
