package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/pkgindex/internal/artifact"
	"github.com/Aman-CERP/pkgindex/internal/coordinates"
)

func newEntry(t *testing.T, repo string, format coordinates.Format, p string) *artifact.Entry {
	t.Helper()
	c, err := coordinates.DefaultRegistry().Parse(string(format), p)
	require.NoError(t, err)
	return &artifact.Entry{
		StorageID:    "storage0",
		RepositoryID: repo,
		Path:         p,
		Coordinates:  c,
		Metadata:     map[string]string{"size": "42"},
		CreatedAt:    time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
	}
}

func newMemStore(t *testing.T) *SQLiteArtifactStore {
	t.Helper()
	s, err := NewSQLiteArtifactStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteArtifactStore_SaveAndLoad(t *testing.T) {
	// Given: a stored wheel entry
	ctx := context.Background()
	s := newMemStore(t)
	e := newEntry(t, "pypi", coordinates.FormatPypi, "numpy/numpy-1.21.0-cp39-cp39-manylinux1_x86_64.whl")
	require.NoError(t, s.SaveEntries(ctx, []*artifact.Entry{e}))

	// When: loading it back
	got, err := s.Entry(ctx, "storage0", "pypi", e.Path)
	require.NoError(t, err)

	// Then: coordinates and metadata survive the round trip
	require.NotNil(t, got)
	assert.Equal(t, e.Coordinates, got.Coordinates)
	assert.Equal(t, "42", got.Metadata["size"])
	assert.True(t, e.CreatedAt.Equal(got.CreatedAt))

	missing, err := s.Entry(ctx, "storage0", "pypi", "nope.whl")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteArtifactStore_SaveRejectsEntriesWithoutCoordinates(t *testing.T) {
	s := newMemStore(t)
	err := s.SaveEntries(context.Background(), []*artifact.Entry{{Path: "x.jar"}})
	assert.ErrorContains(t, err, "has no coordinates")
}

func TestSQLiteArtifactStore_GroupsArePagedByKey(t *testing.T) {
	// Given: 5 artifacts with two files each, saved in reverse order
	ctx := context.Background()
	s := newMemStore(t)
	var entries []*artifact.Entry
	for i := 4; i >= 0; i-- {
		name := fmt.Sprintf("lib%d", i)
		dir := "org/x/" + name + "/1.0/"
		entries = append(entries,
			newEntry(t, "releases", coordinates.FormatMaven, dir+name+"-1.0.pom"),
			newEntry(t, "releases", coordinates.FormatMaven, dir+name+"-1.0.jar"),
		)
	}
	entries = append(entries, newEntry(t, "other", coordinates.FormatMaven, "org/x/lib9/1.0/lib9-1.0.jar"))
	require.NoError(t, s.SaveEntries(ctx, entries))

	// When: counting and paging two at a time
	n, err := s.Count(ctx, "storage0", "releases")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	var keys []string
	for offset := 0; offset < 6; offset += 2 {
		groups, err := s.FindMatching(ctx, "storage0", "releases", artifact.PagingCriteria{Offset: offset, Limit: 2})
		require.NoError(t, err)
		for _, g := range groups {
			keys = append(keys, g.Key)
			// Then: entries are ordered by path within a group
			require.Len(t, g.Entries, 2)
			assert.Equal(t, "jar", g.Entries[0].Coordinates.Extension())
			assert.Equal(t, "pom", g.Entries[1].Coordinates.Extension())
			assert.Equal(t, "releases", g.RepositoryID)
		}
	}

	// Then: every group appears once, in key order
	assert.Equal(t, []string{"org.x:lib0", "org.x:lib1", "org.x:lib2", "org.x:lib3", "org.x:lib4"}, keys)
}

func TestSQLiteArtifactStore_FindMatchingBeyondEnd(t *testing.T) {
	s := newMemStore(t)
	groups, err := s.FindMatching(context.Background(), "storage0", "empty", artifact.PagingCriteria{Offset: 0, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, groups)

	groups, err = s.FindMatching(context.Background(), "storage0", "empty", artifact.PagingCriteria{Limit: 0})
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestSQLiteArtifactStore_ReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)
	e := newEntry(t, "releases", coordinates.FormatMaven, "org/x/lib/1.0/lib-1.0.jar")
	require.NoError(t, s.SaveEntries(ctx, []*artifact.Entry{e}))

	e.Metadata = map[string]string{"size": "43"}
	require.NoError(t, s.SaveEntries(ctx, []*artifact.Entry{e}))

	stats, err := s.RepositoryStats(ctx, "storage0", "releases")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Entries)

	paths, err := s.Paths(ctx, "storage0", "releases")
	require.NoError(t, err)
	assert.Equal(t, []string{e.Path}, paths)

	require.NoError(t, s.DeleteEntry(ctx, "storage0", "releases", e.Path))
	require.NoError(t, s.DeleteEntry(ctx, "storage0", "releases", e.Path))

	n, err := s.Count(ctx, "storage0", "releases")
	require.NoError(t, err)
	assert.Zero(t, n)
	paths, err = s.Paths(ctx, "storage0", "releases")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestSQLiteArtifactStore_StatsAndRepositories(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)
	require.NoError(t, s.SaveEntries(ctx, []*artifact.Entry{
		newEntry(t, "mixed", coordinates.FormatMaven, "org/x/lib/1.0/lib-1.0.jar"),
		newEntry(t, "mixed", coordinates.FormatMaven, "org/x/lib/2.0/lib-2.0.jar"),
		newEntry(t, "mixed", coordinates.FormatPypi, "Flask-2.3.2.tar.gz"),
		newEntry(t, "releases", coordinates.FormatMaven, "org/x/lib/1.0/lib-1.0.jar"),
	}))

	stats, err := s.RepositoryStats(ctx, "storage0", "mixed")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Entries)
	assert.Equal(t, int64(2), stats.Groups)
	assert.Equal(t, int64(3), stats.Versions)
	assert.Equal(t, map[string]int64{"maven": 2, "pypi": 1}, stats.ByFormat)

	refs, err := s.Repositories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []RepositoryRef{
		{StorageID: "storage0", RepositoryID: "mixed"},
		{StorageID: "storage0", RepositoryID: "releases"},
	}, refs)
}

func TestSQLiteArtifactStore_PersistsOnDisk(t *testing.T) {
	// Given: a file-backed store with one entry
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "artifacts.db")
	s, err := NewSQLiteArtifactStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveEntries(ctx, []*artifact.Entry{
		newEntry(t, "releases", coordinates.FormatMaven, "org/x/lib/1.0/lib-1.0.jar"),
	}))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	// When: reopening
	s, err = NewSQLiteArtifactStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	// Then: the entry is still there
	n, err := s.Count(ctx, "storage0", "releases")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLiteArtifactStore_CorruptFileIsReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts.db")
	require.NoError(t, os.WriteFile(path, []byte("not a database"), 0644))

	_, err := NewSQLiteArtifactStore(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupted")
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "corrupt file must be left in place")
}

func TestSQLiteArtifactStore_ClosedStore(t *testing.T) {
	s, err := NewSQLiteArtifactStore("")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Count(context.Background(), "s", "r")
	assert.ErrorContains(t, err, "closed")
}
