package indexing

import (
	"path"
	"strings"

	"github.com/Aman-CERP/pkgindex/internal/artifact"
	"github.com/Aman-CERP/pkgindex/internal/coordinates"
)

// Filter is a denylist over the terminal path segment of an entry.
// Checksums, signatures and repository metadata are not resolvable
// artifacts and never become index entries.
type Filter struct {
	names    map[string]struct{}
	suffixes []string
}

// NewFilter creates a filter rejecting the exact filenames and suffixes given.
func NewFilter(names, suffixes []string) *Filter {
	f := &Filter{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n != "" {
			f.names[n] = struct{}{}
		}
	}
	for _, s := range suffixes {
		if s != "" {
			f.suffixes = append(f.suffixes, s)
		}
	}
	return f
}

// DefaultDeniedNames and DefaultDeniedSuffixes make up DefaultFilter.
var (
	DefaultDeniedNames    = []string{"maven-metadata.xml"}
	DefaultDeniedSuffixes = []string{".properties", ".asc", ".md5", ".sha1"}
)

// DefaultFilter returns the auxiliary-file denylist.
func DefaultFilter() *Filter {
	return NewFilter(DefaultDeniedNames, DefaultDeniedSuffixes)
}

// IsIndexable reports whether the entry may become an index entry.
func (f *Filter) IsIndexable(e *artifact.Entry) bool {
	return f.AllowsName(path.Base(e.Path))
}

// AllowsName applies the denylist to a bare filename.
func (f *Filter) AllowsName(filename string) bool {
	if _, denied := f.names[filename]; denied {
		return false
	}
	for _, s := range f.suffixes {
		if strings.HasSuffix(filename, s) {
			return false
		}
	}
	return true
}

// FilterSet selects a Filter per coordinate format, falling back to a
// default for formats without an override.
type FilterSet struct {
	fallback *Filter
	byFormat map[coordinates.Format]*Filter
}

// NewFilterSet creates a set using fallback for every format not overridden.
// A nil fallback means DefaultFilter.
func NewFilterSet(fallback *Filter) *FilterSet {
	if fallback == nil {
		fallback = DefaultFilter()
	}
	return &FilterSet{
		fallback: fallback,
		byFormat: make(map[coordinates.Format]*Filter),
	}
}

// Override sets the filter used for one format. It must be called before
// the set is shared between goroutines.
func (s *FilterSet) Override(format coordinates.Format, f *Filter) *FilterSet {
	s.byFormat[format] = f
	return s
}

// For returns the filter applied to entries of format.
func (s *FilterSet) For(format coordinates.Format) *Filter {
	if f, ok := s.byFormat[format]; ok {
		return f
	}
	return s.fallback
}

// IsIndexable applies the filter of the entry's format.
func (s *FilterSet) IsIndexable(e *artifact.Entry) bool {
	return s.For(e.Format()).IsIndexable(e)
}
