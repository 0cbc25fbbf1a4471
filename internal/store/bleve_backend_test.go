package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/pkgindex/internal/coordinates"
	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
	"github.com/Aman-CERP/pkgindex/internal/indexing"
)

func contextRequest(t *testing.T, id string) indexing.ContextRequest {
	t.Helper()
	root := t.TempDir()
	return indexing.ContextRequest{
		ID:           id,
		StorageID:    "storage0",
		RepositoryID: "releases",
		IndexDir:     filepath.Join(root, "index", "releases-index"),
		CacheDir:     filepath.Join(root, "cache", "releases-cache"),
		Creators:     DefaultCreators(),
	}
}

func TestBleveIndexBackend_CreateSubmitSearch(t *testing.T) {
	// Given: a fresh context
	ctx := context.Background()
	b := NewBleveIndexBackend()
	defer func() { _ = b.Close() }()
	req := contextRequest(t, "ctx-1")

	ic, err := b.CreateContext(ctx, req)
	require.NoError(t, err)
	assert.DirExists(t, req.IndexDir)
	assert.DirExists(t, req.CacheDir)
	assert.FileExists(t, filepath.Join(req.IndexDir, contextFile))

	// When: submitting a batch
	batch := []indexing.IndexEntry{
		{Entry: newEntry(t, "releases", coordinates.FormatMaven, "org/apache/commons/commons-lang3/3.12.0/commons-lang3-3.12.0.jar"),
			Flags: indexing.SiblingFlags{HasParentDescriptor: true}},
		{Entry: newEntry(t, "releases", coordinates.FormatMaven, "com/zaxxer/HikariCP/5.0.1/HikariCP-5.0.1.jar")},
	}
	require.NoError(t, b.Submit(ctx, batch, ic))
	require.NoError(t, b.Submit(ctx, nil, ic))

	// Then: documents are searchable by coordinate parts
	n, err := b.DocCount(ic)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	hits, err := b.Search(ctx, ic, "commons", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, batch[0].Entry.Path, hits[0].ID)
	assert.Equal(t, "org.apache.commons:commons-lang3", hits[0].Fields["group_key"])

	hits, err = b.Search(ctx, ic, "hikari", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "HikariCP", hits[0].Fields["artifact_id"])

	hits, err = b.Search(ctx, ic, "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// And: a malformed query is rejected as invalid input
	_, err = b.Search(ctx, ic, "artifact_id:(commons", 10)
	assert.Equal(t, pkgerrors.ErrCodeInvalidQuery, pkgerrors.GetCode(err))
	pe, ok := pkgerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, pkgerrors.CategoryValidation, pe.Category)
}

func TestBleveIndexBackend_DirectoryIsExclusive(t *testing.T) {
	ctx := context.Background()
	b := NewBleveIndexBackend()
	defer func() { _ = b.Close() }()
	req := contextRequest(t, "ctx-1")

	ic, err := b.CreateContext(ctx, req)
	require.NoError(t, err)

	// When: a second build targets the same directory
	req.ID = "ctx-2"
	_, err = b.CreateContext(ctx, req)

	// Then: it is refused until the first context closes
	assert.Equal(t, pkgerrors.ErrCodeIndexLocked, pkgerrors.GetCode(err))
	_, err = b.OpenContext(req.IndexDir)
	assert.Equal(t, pkgerrors.ErrCodeIndexLocked, pkgerrors.GetCode(err))

	require.NoError(t, b.CloseContext(ic))
	require.NoError(t, b.CloseContext(ic))
	ic2, err := b.CreateContext(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "ctx-2", ic2.ID)
}

func TestBleveIndexBackend_NewContextReplacesOldIndex(t *testing.T) {
	ctx := context.Background()
	b := NewBleveIndexBackend()
	defer func() { _ = b.Close() }()
	req := contextRequest(t, "ctx-1")

	ic, err := b.CreateContext(ctx, req)
	require.NoError(t, err)
	require.NoError(t, b.Submit(ctx, []indexing.IndexEntry{
		{Entry: newEntry(t, "releases", coordinates.FormatMaven, "org/x/lib/1.0/lib-1.0.jar")},
	}, ic))
	require.NoError(t, b.CloseContext(ic))

	req.ID = "ctx-2"
	ic, err = b.CreateContext(ctx, req)
	require.NoError(t, err)

	n, err := b.DocCount(ic)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBleveIndexBackend_OpenContextReadOnly(t *testing.T) {
	// Given: a built and closed index
	ctx := context.Background()
	b := NewBleveIndexBackend()
	defer func() { _ = b.Close() }()
	req := contextRequest(t, "ctx-1")
	ic, err := b.CreateContext(ctx, req)
	require.NoError(t, err)
	require.NoError(t, b.Submit(ctx, []indexing.IndexEntry{
		{Entry: newEntry(t, "releases", coordinates.FormatPypi, "numpy-1.21.0-cp39-cp39-manylinux1_x86_64.whl")},
	}, ic))
	require.NoError(t, b.CloseContext(ic))

	// When: reopening it for search
	ro, err := b.OpenContext(req.IndexDir)
	require.NoError(t, err)

	// Then: the context description is restored and search works
	assert.Equal(t, "ctx-1", ro.ID)
	assert.Equal(t, "releases", ro.RepositoryID)
	assert.Len(t, ro.Creators, 2)

	hits, err := b.Search(ctx, ro, "platform:manylinux1", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "wheel", hits[0].Fields["package_kind"])

	// And: it refuses writes
	err = b.Submit(ctx, []indexing.IndexEntry{
		{Entry: newEntry(t, "releases", coordinates.FormatPypi, "Flask-2.3.2.tar.gz")},
	}, ro)
	assert.Equal(t, pkgerrors.ErrCodeIndexSubmitFailed, pkgerrors.GetCode(err))
}

func TestBleveIndexBackend_OpenContextErrors(t *testing.T) {
	b := NewBleveIndexBackend()
	defer func() { _ = b.Close() }()

	_, err := b.OpenContext(t.TempDir())
	assert.Equal(t, pkgerrors.ErrCodeFileNotFound, pkgerrors.GetCode(err))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, contextFile), []byte(`{"id":"x","creators":["minimal"]}`), 0644))
	_, err = b.OpenContext(dir)
	assert.Equal(t, pkgerrors.ErrCodeCorruptIndex, pkgerrors.GetCode(err))
	assert.True(t, pkgerrors.IsFatal(err))
}

func TestBleveIndexBackend_CreateContextFailsOnUnwritableDir(t *testing.T) {
	// Given: a regular file where the index root should be
	root := t.TempDir()
	blocker := filepath.Join(root, "index")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	req := indexing.ContextRequest{
		ID:           "ctx-1",
		RepositoryID: "releases",
		IndexDir:     filepath.Join(blocker, "releases-index"),
	}

	// When/Then: context creation fails with a creation error
	_, err := NewBleveIndexBackend().CreateContext(context.Background(), req)
	assert.Equal(t, pkgerrors.ErrCodeIndexContextCreation, pkgerrors.GetCode(err))
	pe, ok := pkgerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "releases", pe.Details["repository_id"])
}

func TestBleveIndexBackend_UnknownContext(t *testing.T) {
	b := NewBleveIndexBackend()
	err := b.Submit(context.Background(), nil, &indexing.IndexContext{ID: "missing"})
	assert.ErrorContains(t, err, "not open")

	_, err = b.Search(context.Background(), nil, "x", 1)
	assert.Error(t, err)
}
