package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/pkgindex/internal/coordinates"
)

func mavenEntry(t *testing.T, p string) *Entry {
	t.Helper()
	c, err := coordinates.NewMavenParser().Parse(p)
	require.NoError(t, err)
	return &Entry{StorageID: "storage0", RepositoryID: "releases", Path: p, Coordinates: c}
}

func TestGroupByVersion_PreservesFirstSeenOrder(t *testing.T) {
	// Given: entries of two versions, interleaved
	a := mavenEntry(t, "org/x/lib/2.0/lib-2.0.jar")
	b := mavenEntry(t, "org/x/lib/1.0/lib-1.0.jar")
	c := mavenEntry(t, "org/x/lib/2.0/lib-2.0.pom")
	d := mavenEntry(t, "org/x/lib/1.0/lib-1.0-sources.jar")
	group := &IDGroup{Key: "org.x:lib", Entries: []*Entry{a, b, c, d}}

	// When: grouping by version
	vg := GroupByVersion(group)

	// Then: versions and entries keep insertion order
	assert.Equal(t, []string{"2.0", "1.0"}, vg.Versions())
	assert.Equal(t, []*Entry{a, c}, vg.Entries("2.0"))
	assert.Equal(t, []*Entry{b, d}, vg.Entries("1.0"))
	assert.Equal(t, 2, vg.Len())
}

func TestGroupByVersion_EmptyAndNil(t *testing.T) {
	assert.Equal(t, 0, GroupByVersion(nil).Len())
	assert.Equal(t, 0, GroupByVersion(&IDGroup{}).Len())
	assert.Nil(t, GroupByVersion(&IDGroup{}).Entries("1.0"))
}

func TestGroupByVersion_SkipsEntriesWithoutCoordinates(t *testing.T) {
	e := mavenEntry(t, "org/x/lib/1.0/lib-1.0.jar")
	vg := GroupByVersion(&IDGroup{Entries: []*Entry{{Path: "org/x/lib/maven-metadata.xml"}, e}})

	assert.Equal(t, []string{"1.0"}, vg.Versions())
	assert.Equal(t, []*Entry{e}, vg.Entries("1.0"))
}

func TestEntry_FilenameAndFormat(t *testing.T) {
	e := mavenEntry(t, "org/x/lib/1.0/lib-1.0.jar")
	assert.Equal(t, "lib-1.0.jar", e.Filename())
	assert.Equal(t, coordinates.FormatMaven, e.Format())
	assert.Equal(t, coordinates.Format(""), (&Entry{}).Format())
}
