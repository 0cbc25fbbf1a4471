// Package store provides the persistence layer: the SQLite artifact store
// that groups stored artifacts, and the bleve index backend that receives
// index entries.
package store

import (
	"github.com/Aman-CERP/pkgindex/internal/artifact"
	"github.com/Aman-CERP/pkgindex/internal/indexing"
)

// RepositoryRef identifies one repository held by the artifact store.
type RepositoryRef struct {
	StorageID    string `json:"storage_id"`
	RepositoryID string `json:"repository_id"`
}

// RepositoryStats summarises a repository's stored artifacts.
type RepositoryStats struct {
	Entries  int64            `json:"entries"`
	Groups   int64            `json:"groups"`
	Versions int64            `json:"versions"`
	ByFormat map[string]int64 `json:"by_format"`
}

// SearchHit is one document returned by an index search.
type SearchHit struct {
	ID     string
	Score  float64
	Fields map[string]any
}

// Compile-time interface checks.
var (
	_ artifact.GroupService = (*SQLiteArtifactStore)(nil)
	_ indexing.IndexBackend = (*BleveIndexBackend)(nil)
)
