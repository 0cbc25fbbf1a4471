// Package ingest scans stored repository files, parses their paths into
// coordinates and saves them as artifact entries.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Aman-CERP/pkgindex/internal/artifact"
	"github.com/Aman-CERP/pkgindex/internal/coordinates"
	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
	"github.com/Aman-CERP/pkgindex/internal/indexing"
	"github.com/Aman-CERP/pkgindex/internal/ui"
)

// DefaultBatchSize is the number of entries saved per transaction.
const DefaultBatchSize = 500

// EntryStore persists artifact entries and drops the ones whose file is
// gone.
type EntryStore interface {
	SaveEntries(ctx context.Context, entries []*artifact.Entry) error
	Paths(ctx context.Context, storageID, repositoryID string) ([]string, error)
	DeleteEntry(ctx context.Context, storageID, repositoryID, path string) error
}

// Options configures a Service.
type Options struct {
	// BatchSize is the number of entries per save (default DefaultBatchSize).
	BatchSize int

	// SkipInvalid logs files that fail to parse instead of failing the run.
	SkipInvalid bool

	// Filters decides which unparseable files are auxiliary (default
	// indexing.NewFilterSet(nil)).
	Filters *indexing.FilterSet

	// Progress receives one event per saved batch.
	Progress func(ui.ProgressEvent)
}

// Result summarises one ingestion.
type Result struct {
	Scanned   int
	Saved     int
	Auxiliary int
	Invalid   int
	Removed   int
	Duration  time.Duration
}

// Service attaches coordinates to stored files.
type Service struct {
	registry *coordinates.Registry
	store    EntryStore
	opts     Options
}

// NewService creates an ingestion service.
func NewService(registry *coordinates.Registry, store EntryStore, opts Options) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("coordinate registry is required")
	}
	if store == nil {
		return nil, fmt.Errorf("entry store is required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Filters == nil {
		opts.Filters = indexing.NewFilterSet(nil)
	}
	if opts.Progress == nil {
		opts.Progress = func(ui.ProgressEvent) {}
	}
	return &Service{
		registry: registry,
		store:    store,
		opts:     opts,
	}, nil
}

// IngestDir walks root and saves every file whose path parses as format.
// Paths are stored relative to root with '/' separators. Hidden files and
// directories and symlinks are ignored.
//
// Auxiliary files (checksums, signatures, repository metadata) that do not
// parse are skipped silently. Other parse failures are returned joined,
// after every valid file has been saved, unless SkipInvalid is set.
//
// Once the walk completes, stored entries of the repository whose file
// was not saved by this run are deleted.
func (s *Service) IngestDir(ctx context.Context, storageID, repositoryID, format, root string) (*Result, error) {
	start := time.Now()

	parser, err := s.registry.Resolve(format)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidPath, fmt.Sprintf("invalid repository root %s", root), err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, pkgerrors.IOError(fmt.Sprintf("cannot read repository root %s", root), err).
			WithDetail("path", absRoot)
	}
	if !info.IsDir() {
		return nil, pkgerrors.New(pkgerrors.ErrCodeFileNotFound,
			fmt.Sprintf("repository root %s is not a directory", root), nil).
			WithDetail("path", absRoot)
	}

	aux := s.opts.Filters.For(parser.Format())
	saved := make(map[string]struct{})
	res := &Result{}
	var invalid []error
	batch := make([]*artifact.Entry, 0, s.opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.store.SaveEntries(ctx, batch); err != nil {
			return pkgerrors.New(pkgerrors.ErrCodeStorageFailed, "failed to save artifact entries", err).
				WithDetail("storage_id", storageID).
				WithDetail("repository_id", repositoryID)
		}
		res.Saved += len(batch)
		for _, e := range batch {
			saved[e.Path] = struct{}{}
		}
		s.opts.Progress(ui.ProgressEvent{
			Stage:      ui.StageIngesting,
			Repository: repositoryID,
			Message:    strconv.Itoa(res.Saved) + " entries saved",
		})
		batch = batch[:0]
		return nil
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil // Skip files we can't access
		}
		if path == absRoot {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)
		res.Scanned++

		coords, err := parser.Parse(relPath)
		if err != nil {
			if !aux.AllowsName(d.Name()) {
				res.Auxiliary++
				return nil
			}
			res.Invalid++
			if s.opts.SkipInvalid {
				slog.Warn("skipping unparseable artifact",
					slog.String("repository_id", repositoryID),
					slog.String("path", relPath),
					slog.String("error", err.Error()))
				return nil
			}
			invalid = append(invalid, err)
			return nil
		}

		batch = append(batch, &artifact.Entry{
			StorageID:    storageID,
			RepositoryID: repositoryID,
			Path:         relPath,
			Coordinates:  coords,
			Metadata:     fileMetadata(d),
			CreatedAt:    time.Now().UTC(),
		})
		if len(batch) >= s.opts.BatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if res.Removed, err = s.prune(ctx, storageID, repositoryID, saved); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	slog.Info("repository ingested",
		slog.String("storage_id", storageID),
		slog.String("repository_id", repositoryID),
		slog.String("format", format),
		slog.Int("scanned", res.Scanned),
		slog.Int("saved", res.Saved),
		slog.Int("auxiliary", res.Auxiliary),
		slog.Int("invalid", res.Invalid),
		slog.Int("removed", res.Removed),
		slog.Duration("duration", res.Duration))

	if len(invalid) > 0 {
		return res, errors.Join(invalid...)
	}
	return res, nil
}

// prune deletes the repository's stored entries missing from saved.
func (s *Service) prune(ctx context.Context, storageID, repositoryID string, saved map[string]struct{}) (int, error) {
	stored, err := s.store.Paths(ctx, storageID, repositoryID)
	if err != nil {
		return 0, pruneError(storageID, repositoryID, err)
	}

	removed := 0
	for _, p := range stored {
		if _, ok := saved[p]; ok {
			continue
		}
		if err := s.store.DeleteEntry(ctx, storageID, repositoryID, p); err != nil {
			return removed, pruneError(storageID, repositoryID, err).WithDetail("path", p)
		}
		removed++
		slog.Debug("stale entry removed",
			slog.String("repository_id", repositoryID),
			slog.String("path", p))
	}

	if removed > 0 {
		s.opts.Progress(ui.ProgressEvent{
			Stage:      ui.StageIngesting,
			Repository: repositoryID,
			Message:    strconv.Itoa(removed) + " stale entries removed",
		})
	}
	return removed, nil
}

func pruneError(storageID, repositoryID string, cause error) *pkgerrors.PkgError {
	return pkgerrors.New(pkgerrors.ErrCodeStorageFailed, "failed to remove stale artifact entries", cause).
		WithDetail("storage_id", storageID).
		WithDetail("repository_id", repositoryID)
}

func fileMetadata(d fs.DirEntry) map[string]string {
	info, err := d.Info()
	if err != nil {
		return nil
	}
	return map[string]string{
		"size":     strconv.FormatInt(info.Size(), 10),
		"modified": info.ModTime().UTC().Format(time.RFC3339),
	}
}
