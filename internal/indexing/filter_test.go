package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/pkgindex/internal/artifact"
	"github.com/Aman-CERP/pkgindex/internal/coordinates"
)

func TestDefaultFilter_DeniedNames(t *testing.T) {
	f := DefaultFilter()

	tests := []struct {
		path string
		want bool
	}{
		{"maven-metadata.xml", false},
		{"org/x/lib/maven-metadata.xml", false},
		{"x.properties", false},
		{"x.asc", false},
		{"x.md5", false},
		{"x.sha1", false},
		{"org/x/lib/1.0/lib-1.0.jar.sha1", false},
		{"org/x/lib/1.0/lib-1.0.jar", true},
		{"org/x/lib/1.0/lib-1.0.pom", true},
		{"numpy-1.21.0.tar.gz", true},
		{"maven-metadata.xml.bak", true},
		{"x.sha256", true},
		{"asc/lib.jar", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e := &artifact.Entry{Path: tt.path}
			// Then: the predicate is pure and stable
			assert.Equal(t, tt.want, f.IsIndexable(e))
			assert.Equal(t, f.IsIndexable(e), f.IsIndexable(e))
		})
	}
}

func TestFilterSet_PerFormatOverride(t *testing.T) {
	// Given: pypi overridden to reject signatures only
	set := NewFilterSet(nil).Override(coordinates.FormatPypi, NewFilter(nil, []string{".asc"}))

	pypiChecksum := entry(t, coordinates.FormatPypi, "Flask-2.3.2.tar.gz")
	pypiChecksum.Path = "Flask-2.3.2.tar.gz.md5"
	mavenChecksum := entry(t, coordinates.FormatMaven, "org/x/lib/1.0/lib-1.0.jar.md5")

	// Then: pypi uses the override, maven the default
	assert.True(t, set.IsIndexable(pypiChecksum))
	assert.False(t, set.IsIndexable(mavenChecksum))
	assert.False(t, set.For(coordinates.FormatPypi).AllowsName("Flask-2.3.2.tar.gz.asc"))
	assert.Same(t, set.For(coordinates.FormatMaven), set.For(""))
}

func TestNewFilter_IgnoresEmptyRules(t *testing.T) {
	f := NewFilter([]string{""}, []string{""})
	assert.True(t, f.AllowsName("anything"))
}
