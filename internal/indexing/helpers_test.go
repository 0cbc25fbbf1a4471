package indexing

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/pkgindex/internal/artifact"
	"github.com/Aman-CERP/pkgindex/internal/coordinates"
)

func entry(t *testing.T, format coordinates.Format, p string) *artifact.Entry {
	t.Helper()
	c, err := coordinates.DefaultRegistry().Parse(string(format), p)
	require.NoError(t, err)
	return &artifact.Entry{StorageID: "storage0", RepositoryID: "releases", Path: p, Coordinates: c}
}

func mavenEntries(t *testing.T, paths ...string) []*artifact.Entry {
	t.Helper()
	out := make([]*artifact.Entry, len(paths))
	for i, p := range paths {
		out[i] = entry(t, coordinates.FormatMaven, p)
	}
	return out
}

// libraryGroup returns a group with a jar, its pom and a checksum.
func libraryGroup(t *testing.T, n int) *artifact.IDGroup {
	t.Helper()
	name := fmt.Sprintf("lib%03d", n)
	dir := "org/example/" + name + "/1.0/"
	entries := mavenEntries(t,
		dir+name+"-1.0.jar",
		dir+name+"-1.0.pom",
		dir+name+"-1.0.jar.sha1",
	)
	return &artifact.IDGroup{StorageID: "storage0", RepositoryID: "releases", Key: "org.example:" + name, Entries: entries}
}

type fakeGroups struct {
	mu       sync.Mutex
	groups   []*artifact.IDGroup
	countErr error
	findErr  map[int]error
	pages    []artifact.PagingCriteria
}

func (f *fakeGroups) Count(_ context.Context, _, _ string) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.groups)), nil
}

func (f *fakeGroups) FindMatching(_ context.Context, _, _ string, page artifact.PagingCriteria) ([]*artifact.IDGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.findErr[len(f.pages)]; err != nil {
		return nil, err
	}
	f.pages = append(f.pages, page)
	if page.Offset >= len(f.groups) {
		return nil, nil
	}
	end := min(page.Offset+page.Limit, len(f.groups))
	return f.groups[page.Offset:end], nil
}

type fakeBackend struct {
	mu        sync.Mutex
	requests  []ContextRequest
	batches   [][]IndexEntry
	createErr error
	submitErr map[int]error
}

func (f *fakeBackend) CreateContext(_ context.Context, req ContextRequest) (*IndexContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.requests = append(f.requests, req)
	return &IndexContext{
		ID:           req.ID,
		StorageID:    req.StorageID,
		RepositoryID: req.RepositoryID,
		CacheDir:     req.CacheDir,
		IndexDir:     req.IndexDir,
		Creators:     req.Creators,
	}, nil
}

func (f *fakeBackend) Submit(_ context.Context, batch []IndexEntry, _ *IndexContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.submitErr[len(f.batches)]; err != nil {
		return err
	}
	f.batches = append(f.batches, batch)
	return nil
}

// releasingBackend records released contexts.
type releasingBackend struct {
	fakeBackend
	released []string
}

func (r *releasingBackend) CloseContext(ic *IndexContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, ic.ID)
	return nil
}
