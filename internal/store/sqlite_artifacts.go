package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/pkgindex/internal/artifact"
	"github.com/Aman-CERP/pkgindex/internal/coordinates"
)

// SQLiteArtifactStore persists artifact entries with their coordinates and
// serves them grouped by logical identity.
type SQLiteArtifactStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// validateArtifactDBIntegrity checks an existing database before opening.
// Returns nil if valid or absent, an error describing corruption if not.
func validateArtifactDBIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
                       WHERE type='table' AND name='artifact_entries'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("table 'artifact_entries' missing")
	}

	return nil
}

// NewSQLiteArtifactStore opens or creates the artifact database at path.
// If path is empty, an in-memory database is used.
//
// Unlike a search index, artifact records cannot be rebuilt from anything
// else, so a corrupted database is reported, never cleared.
func NewSQLiteArtifactStore(path string) (*SQLiteArtifactStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateArtifactDBIntegrity(path); validErr != nil {
			slog.Error("artifact store corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			return nil, fmt.Errorf("artifact store at %s is corrupted: %w", path, validErr)
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; an in-memory database also lives on exactly one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite may ignore DSN params, so pragmas are set explicitly.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -32768",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteArtifactStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteArtifactStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS artifact_entries (
		storage_id    TEXT NOT NULL,
		repository_id TEXT NOT NULL,
		path          TEXT NOT NULL,
		format        TEXT NOT NULL,
		group_key     TEXT NOT NULL,
		version       TEXT NOT NULL,
		classifier    TEXT NOT NULL DEFAULT '',
		extension     TEXT NOT NULL,
		coordinates   TEXT NOT NULL,
		metadata      TEXT NOT NULL DEFAULT '{}',
		created_at    TEXT NOT NULL,
		PRIMARY KEY (storage_id, repository_id, path)
	);

	CREATE INDEX IF NOT EXISTS idx_artifact_entries_group
		ON artifact_entries(storage_id, repository_id, group_key, path);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveEntries inserts or replaces entries in one transaction.
// Every entry must carry coordinates.
func (s *SQLiteArtifactStore) SaveEntries(ctx context.Context, entries []*artifact.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO artifact_entries
			(storage_id, repository_id, path, format, group_key, version,
			 classifier, extension, coordinates, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.Coordinates == nil {
			return fmt.Errorf("entry %s has no coordinates", e.Path)
		}
		coords, err := coordinates.Encode(e.Coordinates)
		if err != nil {
			return fmt.Errorf("failed to encode coordinates of %s: %w", e.Path, err)
		}
		meta, err := json.Marshal(nonNilMetadata(e.Metadata))
		if err != nil {
			return fmt.Errorf("failed to encode metadata of %s: %w", e.Path, err)
		}
		created := e.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}

		c := e.Coordinates
		if _, err := stmt.ExecContext(ctx,
			e.StorageID, e.RepositoryID, e.Path, string(c.Format()), c.GroupKey(), c.Version(),
			c.Classifier(), c.Extension(), string(coords), string(meta),
			created.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("failed to save entry %s: %w", e.Path, err)
		}
	}

	return tx.Commit()
}

// DeleteEntry removes one entry. Deleting a missing entry is not an error.
func (s *SQLiteArtifactStore) DeleteEntry(ctx context.Context, storageID, repositoryID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM artifact_entries WHERE storage_id = ? AND repository_id = ? AND path = ?`,
		storageID, repositoryID, path)
	if err != nil {
		return fmt.Errorf("failed to delete entry %s: %w", path, err)
	}
	return nil
}

// Paths lists the stored paths of a repository in path order.
func (s *SQLiteArtifactStore) Paths(ctx context.Context, storageID, repositoryID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM artifact_entries WHERE storage_id = ? AND repository_id = ? ORDER BY path`,
		storageID, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entry paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan entry path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Count implements artifact.GroupService.
func (s *SQLiteArtifactStore) Count(ctx context.Context, storageID, repositoryID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT group_key) FROM artifact_entries WHERE storage_id = ? AND repository_id = ?`,
		storageID, repositoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}
	return n, nil
}

// FindMatching implements artifact.GroupService. Groups are ordered by key
// and their entries by path, so pages are stable between calls.
func (s *SQLiteArtifactStore) FindMatching(ctx context.Context, storageID, repositoryID string, page artifact.PagingCriteria) ([]*artifact.IDGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if page.Limit <= 0 {
		return nil, nil
	}

	keys, err := s.groupKeys(ctx, storageID, repositoryID, page)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys)+2)
	args = append(args, storageID, repositoryID)
	for _, k := range keys {
		args = append(args, k)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT storage_id, repository_id, path, format, group_key, coordinates, metadata, created_at
		FROM artifact_entries
		WHERE storage_id = ? AND repository_id = ? AND group_key IN (`+placeholders+`)
		ORDER BY group_key, path`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load group entries: %w", err)
	}
	defer rows.Close()

	groups := make([]*artifact.IDGroup, 0, len(keys))
	byKey := make(map[string]*artifact.IDGroup, len(keys))
	for _, k := range keys {
		g := &artifact.IDGroup{StorageID: storageID, RepositoryID: repositoryID, Key: k}
		groups = append(groups, g)
		byKey[k] = g
	}

	for rows.Next() {
		e, key, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		byKey[key].Entries = append(byKey[key].Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group entries: %w", err)
	}

	return groups, nil
}

func (s *SQLiteArtifactStore) groupKeys(ctx context.Context, storageID, repositoryID string, page artifact.PagingCriteria) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT group_key FROM artifact_entries
		WHERE storage_id = ? AND repository_id = ?
		ORDER BY group_key
		LIMIT ? OFFSET ?`,
		storageID, repositoryID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query group keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan group key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Entry loads a single entry, or returns nil when it does not exist.
func (s *SQLiteArtifactStore) Entry(ctx context.Context, storageID, repositoryID, path string) (*artifact.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT storage_id, repository_id, path, format, group_key, coordinates, metadata, created_at
		FROM artifact_entries
		WHERE storage_id = ? AND repository_id = ? AND path = ?`,
		storageID, repositoryID, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load entry %s: %w", path, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	e, _, err := scanEntry(rows)
	return e, err
}

// Repositories lists every repository that has stored entries.
func (s *SQLiteArtifactStore) Repositories(ctx context.Context) ([]RepositoryRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT storage_id, repository_id FROM artifact_entries
		ORDER BY storage_id, repository_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	var refs []RepositoryRef
	for rows.Next() {
		var r RepositoryRef
		if err := rows.Scan(&r.StorageID, &r.RepositoryID); err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// RepositoryStats returns entry, group and version counts for a repository.
func (s *SQLiteArtifactStore) RepositoryStats(ctx context.Context, storageID, repositoryID string) (*RepositoryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	stats := &RepositoryStats{ByFormat: make(map[string]int64)}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT group_key), COUNT(DISTINCT group_key || ':' || version)
		FROM artifact_entries WHERE storage_id = ? AND repository_id = ?`,
		storageID, repositoryID).Scan(&stats.Entries, &stats.Groups, &stats.Versions)
	if err != nil {
		return nil, fmt.Errorf("failed to compute repository stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT format, COUNT(*) FROM artifact_entries
		WHERE storage_id = ? AND repository_id = ?
		GROUP BY format`, storageID, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to count formats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var format string
		var n int64
		if err := rows.Scan(&format, &n); err != nil {
			return nil, fmt.Errorf("failed to scan format count: %w", err)
		}
		stats.ByFormat[format] = n
	}
	return stats, rows.Err()
}

// Close closes the database.
func (s *SQLiteArtifactStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*artifact.Entry, string, error) {
	var (
		e                         artifact.Entry
		format, key               string
		coords, metadata, created string
	)
	if err := row.Scan(&e.StorageID, &e.RepositoryID, &e.Path, &format, &key, &coords, &metadata, &created); err != nil {
		return nil, "", fmt.Errorf("failed to scan entry: %w", err)
	}

	c, err := coordinates.Decode(coordinates.Format(format), []byte(coords))
	if err != nil {
		return nil, "", fmt.Errorf("entry %s: %w", e.Path, err)
	}
	e.Coordinates = c

	if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
		return nil, "", fmt.Errorf("entry %s: failed to decode metadata: %w", e.Path, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		e.CreatedAt = t
	}

	return &e, key, nil
}

func nonNilMetadata(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
