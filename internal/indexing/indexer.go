// Package indexing turns a repository's artifact groups into index entries
// and submits them, one batch per page, to an index backend.
package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/pkgindex/internal/artifact"
	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
	"github.com/Aman-CERP/pkgindex/internal/ui"
)

// DefaultPageSize is the number of groups fetched per page.
const DefaultPageSize = 100

// IndexEntry is the unit submitted to an index backend.
type IndexEntry struct {
	Entry *artifact.Entry
	Flags SiblingFlags
}

// Document is the field map a Creator populates for one IndexEntry.
type Document map[string]any

// Creator contributes fields to the backend document of an entry.
type Creator interface {
	Name() string
	Populate(doc Document, e IndexEntry)
}

// ContextRequest describes a new index context.
type ContextRequest struct {
	ID           string
	StorageID    string
	RepositoryID string
	CacheDir     string
	IndexDir     string
	Creators     []Creator
	Options      map[string]string
}

// IndexContext is the handle of one index build. It is owned by the run
// that created it; no other writer submits to it.
type IndexContext struct {
	ID           string
	StorageID    string
	RepositoryID string
	CacheDir     string
	IndexDir     string
	Creators     []Creator
	CreatedAt    time.Time
}

// IndexBackend stores index entries.
type IndexBackend interface {
	// CreateContext prepares a new, empty index. It fails with
	// ERR_207_INDEX_CONTEXT_CREATION when directories cannot be created.
	CreateContext(ctx context.Context, req ContextRequest) (*IndexContext, error)

	// Submit adds one batch to the index.
	Submit(ctx context.Context, batch []IndexEntry, ic *IndexContext) error
}

// ContextReleaser is implemented by backends that hold resources per
// context. The indexer releases a context whose run failed; its partial
// contents are left in place.
type ContextReleaser interface {
	CloseContext(ic *IndexContext) error
}

// IndexerConfig configures an Indexer.
type IndexerConfig struct {
	// IndexRoot holds one "{storageId}/{repositoryId}-index" directory per
	// repository.
	IndexRoot string

	// CacheRoot holds one "{storageId}/{repositoryId}-cache" directory per
	// repository.
	CacheRoot string

	// PageSize is the number of groups per page (default DefaultPageSize).
	PageSize int

	// Workers bounds the parallel entry building within a page
	// (default 1, sequential).
	Workers int

	// Options are passed through to the backend on context creation.
	Options map[string]string
}

// IndexerDependencies contains the injected dependencies for Indexer.
type IndexerDependencies struct {
	// Groups pages through artifact groups (required).
	Groups artifact.GroupService

	// Backend receives the batches (required).
	Backend IndexBackend

	// Creators populate backend documents.
	Creators []Creator

	// Filters gates entries (defaults to DefaultFilter for every format).
	Filters *FilterSet

	// Progress receives page events.
	Progress func(ui.ProgressEvent)

	// NewID generates context identifiers (defaults to random UUIDs).
	NewID func() string
}

// RunResult summarises one indexing run.
type RunResult struct {
	Context      *IndexContext
	ContextID    string
	StorageID    string
	RepositoryID string
	Pages        int
	Groups       int64
	Entries      int
	Skipped      int
	Duration     time.Duration
}

// Indexer builds repository indexes. It holds no per-run state and may
// run several repositories at once.
type Indexer struct {
	cfg      IndexerConfig
	groups   artifact.GroupService
	backend  IndexBackend
	creators []Creator
	filters  *FilterSet
	progress func(ui.ProgressEvent)
	newID    func() string
}

// NewIndexer creates an Indexer with injected dependencies.
func NewIndexer(cfg IndexerConfig, deps IndexerDependencies) (*Indexer, error) {
	if deps.Groups == nil {
		return nil, fmt.Errorf("group service is required")
	}
	if deps.Backend == nil {
		return nil, fmt.Errorf("index backend is required")
	}
	if cfg.PageSize < 0 || cfg.Workers < 0 {
		return nil, fmt.Errorf("page size and workers must not be negative")
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}

	filters := deps.Filters
	if filters == nil {
		filters = NewFilterSet(nil)
	}
	progress := deps.Progress
	if progress == nil {
		progress = func(ui.ProgressEvent) {}
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Indexer{
		cfg:      cfg,
		groups:   deps.Groups,
		backend:  deps.Backend,
		creators: deps.Creators,
		filters:  filters,
		progress: progress,
		newID:    newID,
	}, nil
}

// PageSize returns the configured page size.
func (ix *Indexer) PageSize() int {
	return ix.cfg.PageSize
}

// PageCount returns ceil(total/pageSize), and at least one.
func PageCount(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 1
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// IndexDir returns the index directory of a repository. Repository ids are
// only unique within a storage, so the storage id is part of the path.
func IndexDir(root, storageID, repositoryID string) string {
	return filepath.Join(root, storageID, repositoryID+"-index")
}

// CacheDir returns the cache directory of a repository.
func CacheDir(root, storageID, repositoryID string) string {
	return filepath.Join(root, storageID, repositoryID+"-cache")
}

// BuildIndex indexes one repository into a new context and returns it.
func (ix *Indexer) BuildIndex(ctx context.Context, storageID, repositoryID string) (*IndexContext, error) {
	res, err := ix.Run(ctx, storageID, repositoryID)
	if err != nil {
		return nil, err
	}
	return res.Context, nil
}

// Run indexes one repository into a new context. Pages are fetched and
// submitted strictly in order. The run aborts on the first collaborator
// failure; a retry must start a new run.
func (ix *Indexer) Run(ctx context.Context, storageID, repositoryID string) (_ *RunResult, err error) {
	start := time.Now()
	res := &RunResult{StorageID: storageID, RepositoryID: repositoryID}

	ic, err := ix.backend.CreateContext(ctx, ContextRequest{
		ID:           ix.newID(),
		StorageID:    storageID,
		RepositoryID: repositoryID,
		CacheDir:     CacheDir(ix.cfg.CacheRoot, storageID, repositoryID),
		IndexDir:     IndexDir(ix.cfg.IndexRoot, storageID, repositoryID),
		Creators:     ix.creators,
		Options:      ix.cfg.Options,
	})
	if err != nil {
		return nil, runError(pkgerrors.ErrCodeIndexContextCreation,
			"failed to create index context", storageID, repositoryID, err)
	}
	res.Context = ic
	res.ContextID = ic.ID
	defer func() {
		if err != nil {
			ix.release(ic)
		}
	}()

	ix.emit(ui.StageCounting, repositoryID, 0, 0, "counting groups")
	total, err := ix.groups.Count(ctx, storageID, repositoryID)
	if err != nil {
		return nil, runError(pkgerrors.ErrCodeGroupQueryFailed,
			"failed to count artifact groups", storageID, repositoryID, err)
	}
	res.Groups = total

	pages := PageCount(total, ix.cfg.PageSize)
	slog.Info("index run started",
		slog.String("context_id", ic.ID),
		slog.String("storage_id", storageID),
		slog.String("repository_id", repositoryID),
		slog.Int64("groups", total),
		slog.Int("pages", pages))

	for page := 0; page < pages; page++ {
		ix.emit(ui.StageFetching, repositoryID, page+1, pages, "fetching groups")
		groups, err := ix.groups.FindMatching(ctx, storageID, repositoryID, artifact.PagingCriteria{
			Offset: page * ix.cfg.PageSize,
			Limit:  ix.cfg.PageSize,
		})
		if err != nil {
			return nil, runError(pkgerrors.ErrCodeGroupQueryFailed,
				"failed to fetch artifact groups", storageID, repositoryID, err).
				WithDetail("page", strconv.Itoa(page))
		}

		ix.emit(ui.StageBuilding, repositoryID, page+1, pages, fmt.Sprintf("%d groups", len(groups)))
		batch, skipped, err := ix.buildPage(ctx, groups)
		if err != nil {
			return nil, runError(pkgerrors.ErrCodeRunCancelled,
				"index run cancelled while building entries", storageID, repositoryID, err).
				WithDetail("page", strconv.Itoa(page))
		}

		ix.emit(ui.StageSubmitting, repositoryID, page+1, pages, fmt.Sprintf("%d entries", len(batch)))
		if err := ix.backend.Submit(ctx, batch, ic); err != nil {
			return nil, runError(pkgerrors.ErrCodeIndexSubmitFailed,
				"failed to submit index batch", storageID, repositoryID, err).
				WithDetail("page", strconv.Itoa(page))
		}

		res.Pages++
		res.Entries += len(batch)
		res.Skipped += skipped
		slog.Debug("index page submitted",
			slog.String("context_id", ic.ID),
			slog.String("repository_id", repositoryID),
			slog.Int("page", page),
			slog.Int("groups", len(groups)),
			slog.Int("entries", len(batch)),
			slog.Int("skipped", skipped))
	}

	res.Duration = time.Since(start)
	ix.emit(ui.StageComplete, repositoryID, 0, 0,
		fmt.Sprintf("%d entries in %d pages", res.Entries, res.Pages))
	slog.Info("index run completed",
		slog.String("context_id", ic.ID),
		slog.String("repository_id", repositoryID),
		slog.Int("pages", res.Pages),
		slog.Int("entries", res.Entries),
		slog.Int("skipped", res.Skipped),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func (ix *Indexer) release(ic *IndexContext) {
	r, ok := ix.backend.(ContextReleaser)
	if !ok {
		return
	}
	if err := r.CloseContext(ic); err != nil {
		slog.Warn("failed to release index context",
			slog.String("context_id", ic.ID),
			slog.String("error", err.Error()))
	}
}

// buildPage expands groups into index entries. Groups are built in
// parallel, but the batch keeps the sequential group order.
func (ix *Indexer) buildPage(ctx context.Context, groups []*artifact.IDGroup) ([]IndexEntry, int, error) {
	built := make([][]IndexEntry, len(groups))
	skipped := make([]int, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Workers)
	for i, group := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			built[i], skipped[i] = ix.expandGroup(group)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	batch := make([]IndexEntry, 0, len(groups))
	total := 0
	for i := range built {
		batch = append(batch, built[i]...)
		total += skipped[i]
	}
	return batch, total, nil
}

// expandGroup filters and resolves siblings for every entry of a group,
// version by version.
func (ix *Indexer) expandGroup(group *artifact.IDGroup) ([]IndexEntry, int) {
	vg := artifact.GroupByVersion(group)
	var out []IndexEntry
	skipped := 0
	for _, version := range vg.Versions() {
		entries := vg.Entries(version)
		for i, e := range entries {
			if !ix.filters.IsIndexable(e) {
				skipped++
				continue
			}
			out = append(out, IndexEntry{
				Entry: e,
				Flags: ResolveSiblings(e, siblingsOf(entries, i), RulesFor(e.Format())),
			})
		}
	}
	return out, skipped
}

// siblingsOf returns entries without the one at index i.
func siblingsOf(entries []*artifact.Entry, i int) []*artifact.Entry {
	out := make([]*artifact.Entry, 0, len(entries)-1)
	out = append(out, entries[:i]...)
	return append(out, entries[i+1:]...)
}

func (ix *Indexer) emit(stage ui.Stage, repositoryID string, current, total int, msg string) {
	ix.progress(ui.ProgressEvent{
		Stage:      stage,
		Repository: repositoryID,
		Current:    current,
		Total:      total,
		Message:    msg,
	})
}

func runError(code, msg, storageID, repositoryID string, cause error) *pkgerrors.PkgError {
	return pkgerrors.New(code, fmt.Sprintf("%s for repository '%s' in storage '%s'", msg, repositoryID, storageID), cause).
		WithDetail("storage_id", storageID).
		WithDetail("repository_id", repositoryID)
}
