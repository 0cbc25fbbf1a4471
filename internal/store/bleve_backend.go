package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
	"github.com/Aman-CERP/pkgindex/internal/indexing"
)

const (
	// CoordinateTokenizerName is the name of the coordinate tokenizer.
	CoordinateTokenizerName = "coordinate_tokenizer"

	// CoordinateAnalyzerName is the name of the coordinate analyzer.
	CoordinateAnalyzerName = "coordinate_analyzer"

	// contextFile describes the index context living in an index directory.
	contextFile = "context.json"

	// bleveDir is the bleve index inside an index directory.
	bleveDir = "bleve"
)

func init() {
	_ = registry.RegisterTokenizer(CoordinateTokenizerName, coordinateTokenizerConstructor)
}

// contextMeta is the persisted description of an index context.
type contextMeta struct {
	ID           string            `json:"id"`
	StorageID    string            `json:"storage_id"`
	RepositoryID string            `json:"repository_id"`
	CacheDir     string            `json:"cache_dir"`
	Creators     []string          `json:"creators"`
	Options      map[string]string `json:"options,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

type openContext struct {
	index    bleve.Index
	lock     *IndexLock
	readOnly bool
}

// BleveIndexBackend stores index entries in one bleve index per context.
// Each context owns its index directory through an IndexLock until it is
// closed.
type BleveIndexBackend struct {
	mu       sync.Mutex
	contexts map[string]*openContext
	closed   bool
}

// NewBleveIndexBackend creates a backend with no open contexts.
func NewBleveIndexBackend() *BleveIndexBackend {
	return &BleveIndexBackend{contexts: make(map[string]*openContext)}
}

// CreateContext implements indexing.IndexBackend. Any index left in the
// directory by an earlier run is replaced.
func (b *BleveIndexBackend) CreateContext(ctx context.Context, req indexing.ContextRequest) (*indexing.IndexContext, error) {
	if req.ID == "" || req.IndexDir == "" {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "index context needs an id and an index directory", nil)
	}

	for _, dir := range []string{req.IndexDir, req.CacheDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, contextCreationError(req, fmt.Sprintf("failed to create directory %s", dir), err)
		}
	}

	lock := NewIndexLock(req.IndexDir)
	if err := lock.TryLock(); err != nil {
		return nil, err
	}

	index, err := b.createIndex(req)
	if err != nil {
		_ = lock.Unlock()
		return nil, contextCreationError(req, "failed to create index", err)
	}

	ic := &indexing.IndexContext{
		ID:           req.ID,
		StorageID:    req.StorageID,
		RepositoryID: req.RepositoryID,
		CacheDir:     req.CacheDir,
		IndexDir:     req.IndexDir,
		Creators:     req.Creators,
		CreatedAt:    time.Now().UTC(),
	}
	if err := writeContextMeta(ic, req.Options); err != nil {
		_ = index.Close()
		_ = lock.Unlock()
		return nil, contextCreationError(req, "failed to write context description", err)
	}

	if err := b.register(ic.ID, &openContext{index: index, lock: lock}); err != nil {
		_ = index.Close()
		_ = lock.Unlock()
		return nil, err
	}

	slog.Debug("index context created",
		slog.String("context_id", ic.ID),
		slog.String("repository_id", ic.RepositoryID),
		slog.String("index_dir", ic.IndexDir))
	return ic, nil
}

func (b *BleveIndexBackend) createIndex(req indexing.ContextRequest) (bleve.Index, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}
	path := filepath.Join(req.IndexDir, bleveDir)
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("failed to clear previous index: %w", err)
	}
	return bleve.New(path, indexMapping)
}

// Submit implements indexing.IndexBackend. The batch is written atomically.
func (b *BleveIndexBackend) Submit(ctx context.Context, batch []indexing.IndexEntry, ic *indexing.IndexContext) error {
	oc, err := b.lookup(ic)
	if err != nil {
		return err
	}
	if oc.readOnly {
		return pkgerrors.New(pkgerrors.ErrCodeIndexSubmitFailed, "index context is read-only", nil).
			WithDetail("context_id", ic.ID)
	}
	if len(batch) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	creators := ic.Creators
	if len(creators) == 0 {
		creators = DefaultCreators()
	}

	bb := oc.index.NewBatch()
	for _, e := range batch {
		doc := indexing.Document{}
		for _, c := range creators {
			c.Populate(doc, e)
		}
		if err := bb.Index(e.Entry.Path, map[string]any(doc)); err != nil {
			return submitError(ic, fmt.Sprintf("failed to index %s", e.Entry.Path), err)
		}
	}

	if err := oc.index.Batch(bb); err != nil {
		return submitError(ic, "failed to execute batch", err)
	}
	return nil
}

// OpenContext reopens the index in indexDir read-only. It takes a shared
// lock, so it fails while a build holds the directory.
func (b *BleveIndexBackend) OpenContext(indexDir string) (*indexing.IndexContext, error) {
	meta, err := readContextMeta(indexDir)
	if err != nil {
		return nil, err
	}
	creators, err := CreatorsByName(meta.Creators)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodeCorruptIndex, err.Error(), err).WithDetail("index_dir", indexDir)
	}

	path := filepath.Join(indexDir, bleveDir)
	if err := validateIndexIntegrity(path); err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodeCorruptIndex,
			fmt.Sprintf("index at %s is corrupted", indexDir), err).
			WithSuggestion("Run 'pkgindex index' to rebuild it")
	}

	lock := NewIndexLock(indexDir)
	if err := lock.TryRLock(); err != nil {
		return nil, err
	}

	index, err := bleve.OpenUsing(path, map[string]any{"read_only": true})
	if err != nil {
		_ = lock.Unlock()
		return nil, pkgerrors.New(pkgerrors.ErrCodeCorruptIndex,
			fmt.Sprintf("failed to open index at %s", indexDir), err)
	}

	ic := &indexing.IndexContext{
		ID:           meta.ID,
		StorageID:    meta.StorageID,
		RepositoryID: meta.RepositoryID,
		CacheDir:     meta.CacheDir,
		IndexDir:     indexDir,
		Creators:     creators,
		CreatedAt:    meta.CreatedAt,
	}
	if err := b.register(ic.ID, &openContext{index: index, lock: lock, readOnly: true}); err != nil {
		_ = index.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return ic, nil
}

// Search runs a query-string query against a context. Hits carry every
// stored field.
func (b *BleveIndexBackend) Search(ctx context.Context, ic *indexing.IndexContext, queryStr string, limit int) ([]*SearchHit, error) {
	oc, err := b.lookup(ic)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(queryStr) == "" {
		return []*SearchHit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	q := bleve.NewQueryStringQuery(queryStr)
	if _, err := q.Parse(); err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidQuery, fmt.Sprintf("invalid query %q", queryStr), err).
			WithDetail("query", queryStr).
			WithSuggestion("Balance quotes and parentheses, and escape special characters with a backslash")
	}
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"*"}

	result, err := oc.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodeSearchFailed, "search failed", err).
			WithDetail("query", queryStr)
	}

	hits := make([]*SearchHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, &SearchHit{ID: hit.ID, Score: hit.Score, Fields: hit.Fields})
	}
	return hits, nil
}

// DocCount returns the number of documents in a context.
func (b *BleveIndexBackend) DocCount(ic *indexing.IndexContext) (uint64, error) {
	oc, err := b.lookup(ic)
	if err != nil {
		return 0, err
	}
	return oc.index.DocCount()
}

// CloseContext closes a context's index and releases its directory.
// Closing an unknown or already closed context is a no-op.
func (b *BleveIndexBackend) CloseContext(ic *indexing.IndexContext) error {
	b.mu.Lock()
	oc, ok := b.contexts[ic.ID]
	delete(b.contexts, ic.ID)
	b.mu.Unlock()

	if !ok {
		return nil
	}
	return closeOpenContext(oc)
}

// Close closes every open context.
func (b *BleveIndexBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	for id, oc := range b.contexts {
		if err := closeOpenContext(oc); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(b.contexts, id)
	}
	return firstErr
}

func closeOpenContext(oc *openContext) error {
	err := oc.index.Close()
	if unlockErr := oc.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}

func (b *BleveIndexBackend) register(id string, oc *openContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index backend is closed")
	}
	if _, exists := b.contexts[id]; exists {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput,
			fmt.Sprintf("index context %s is already open", id), nil)
	}
	b.contexts[id] = oc
	return nil
}

func (b *BleveIndexBackend) lookup(ic *indexing.IndexContext) (*openContext, error) {
	if ic == nil {
		return nil, fmt.Errorf("index context is nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	oc, ok := b.contexts[ic.ID]
	if !ok {
		return nil, fmt.Errorf("index context %s is not open", ic.ID)
	}
	return oc, nil
}

func writeContextMeta(ic *indexing.IndexContext, options map[string]string) error {
	data, err := json.MarshalIndent(contextMeta{
		ID:           ic.ID,
		StorageID:    ic.StorageID,
		RepositoryID: ic.RepositoryID,
		CacheDir:     ic.CacheDir,
		Creators:     creatorNames(ic.Creators),
		Options:      options,
		CreatedAt:    ic.CreatedAt,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(ic.IndexDir, contextFile), data, 0644)
}

func readContextMeta(indexDir string) (*contextMeta, error) {
	data, err := os.ReadFile(filepath.Join(indexDir, contextFile))
	if os.IsNotExist(err) {
		return nil, pkgerrors.New(pkgerrors.ErrCodeFileNotFound,
			fmt.Sprintf("no index found in %s", indexDir), err).
			WithSuggestion("Run 'pkgindex index' first")
	}
	if err != nil {
		return nil, pkgerrors.IOError(fmt.Sprintf("failed to read %s", contextFile), err)
	}

	var meta contextMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, pkgerrors.New(pkgerrors.ErrCodeCorruptIndex,
			fmt.Sprintf("%s in %s is corrupt", contextFile, indexDir), err)
	}
	return &meta, nil
}

// validateIndexIntegrity checks that a bleve index directory has a
// readable index_meta.json.
func validateIndexIntegrity(path string) error {
	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// createIndexMapping uses the coordinate analyzer for every text field.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(CoordinateAnalyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": CoordinateTokenizerName,
		"token_filters": []string{
			lowercase.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = CoordinateAnalyzerName
	return indexMapping, nil
}

func contextCreationError(req indexing.ContextRequest, msg string, cause error) *pkgerrors.PkgError {
	return pkgerrors.New(pkgerrors.ErrCodeIndexContextCreation, msg, cause).
		WithDetail("context_id", req.ID).
		WithDetail("repository_id", req.RepositoryID).
		WithDetail("index_dir", req.IndexDir)
}

func submitError(ic *indexing.IndexContext, msg string, cause error) *pkgerrors.PkgError {
	return pkgerrors.New(pkgerrors.ErrCodeIndexSubmitFailed, msg, cause).
		WithDetail("context_id", ic.ID).
		WithDetail("repository_id", ic.RepositoryID)
}

// coordinateTokenizerConstructor creates the coordinate tokenizer for bleve.
func coordinateTokenizerConstructor(config map[string]any, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveCoordinateTokenizer{}, nil
}

// bleveCoordinateTokenizer implements analysis.Tokenizer over SplitCoordinate.
type bleveCoordinateTokenizer struct{}

// Tokenize implements analysis.Tokenizer. camelCase pieces share the
// position of the part they come from.
func (t *bleveCoordinateTokenizer) Tokenize(input []byte) analysis.TokenStream {
	parts := SplitCoordinate(string(input))
	result := make(analysis.TokenStream, 0, len(parts))

	for i, part := range parts {
		result = append(result, &analysis.Token{
			Term:     []byte(part.Term),
			Start:    part.Start,
			End:      part.End,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})

		pieces := SplitCamelCase(part.Term)
		if len(pieces) < 2 {
			continue
		}
		offset := part.Start
		for _, p := range pieces {
			result = append(result, &analysis.Token{
				Term:     []byte(p),
				Start:    offset,
				End:      offset + len(p),
				Position: i + 1,
				Type:     analysis.AlphaNumeric,
			})
			offset += len(p)
		}
	}

	return result
}
