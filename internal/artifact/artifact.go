// Package artifact holds the stored-artifact model and the grouping
// contract the indexer pages through.
package artifact

import (
	"context"
	"path"
	"time"

	"github.com/Aman-CERP/pkgindex/internal/coordinates"
)

// Entry is one stored file of a repository with its parsed coordinates.
type Entry struct {
	StorageID    string
	RepositoryID string

	// Path is relative to the repository root, '/' separated.
	Path string

	Coordinates coordinates.Coordinates

	// Metadata carries optional storage attributes (size, checksum, ...).
	Metadata map[string]string

	CreatedAt time.Time
}

// Filename returns the terminal segment of the entry path.
func (e *Entry) Filename() string {
	return path.Base(e.Path)
}

// Format returns the coordinate format, or "" when no coordinates are attached.
func (e *Entry) Format() coordinates.Format {
	if e.Coordinates == nil {
		return ""
	}
	return e.Coordinates.Format()
}

// IDGroup is the set of entries sharing one logical artifact identity
// across all versions and file variants.
type IDGroup struct {
	StorageID    string
	RepositoryID string
	Key          string
	Entries      []*Entry
}

// PagingCriteria selects a window of groups.
type PagingCriteria struct {
	Offset int
	Limit  int
}

// GroupService exposes a repository's artifact groups page by page.
type GroupService interface {
	// Count returns the number of groups in the repository.
	Count(ctx context.Context, storageID, repositoryID string) (int64, error)

	// FindMatching returns the groups in the requested window, in a stable order.
	FindMatching(ctx context.Context, storageID, repositoryID string, page PagingCriteria) ([]*IDGroup, error)
}
