package coordinates

import (
	"fmt"
	"sort"
	"strings"

	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
)

// Registry maps format identifiers to parsers. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	parsers map[Format]Parser
}

// NewRegistry builds a registry from the given parsers. A later parser for
// the same format replaces an earlier one.
func NewRegistry(parsers ...Parser) *Registry {
	m := make(map[Format]Parser, len(parsers))
	for _, p := range parsers {
		m[p.Format()] = p
	}
	return &Registry{parsers: m}
}

// DefaultRegistry returns a registry with every built-in format.
func DefaultRegistry() *Registry {
	return NewRegistry(NewMavenParser(), NewPypiParser())
}

// Resolve returns the parser registered for format.
func (r *Registry) Resolve(format string) (Parser, error) {
	p, ok := r.parsers[Format(strings.ToLower(format))]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("no parser registered for format '%s'", format), nil).
			WithDetail("format", format).
			WithSuggestion("Use one of: " + r.formatList())
	}
	return p, nil
}

// Parse resolves the parser for format and parses path with it.
func (r *Registry) Parse(format, path string) (Coordinates, error) {
	p, err := r.Resolve(format)
	if err != nil {
		return nil, err
	}
	return p.Parse(path)
}

// Formats returns the registered format identifiers, sorted.
func (r *Registry) Formats() []Format {
	formats := make([]Format, 0, len(r.parsers))
	for f := range r.parsers {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// Cached returns a registry whose parsers memoize successful parses in an
// LRU cache of the given size per format.
func (r *Registry) Cached(size int) *Registry {
	parsers := make([]Parser, 0, len(r.parsers))
	for _, p := range r.parsers {
		parsers = append(parsers, NewCachedParser(p, size))
	}
	return NewRegistry(parsers...)
}

func (r *Registry) formatList() string {
	formats := r.Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
