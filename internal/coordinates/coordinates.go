// Package coordinates turns stored artifact paths into typed, format-specific
// coordinates. Each packaging format has its own grammar; the set of formats
// is closed and exposed through a Registry.
package coordinates

import (
	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
)

// Format identifies a packaging ecosystem.
type Format string

const (
	FormatMaven Format = "maven"
	FormatPypi  Format = "pypi"
)

// String returns the format identifier.
func (f Format) String() string {
	return string(f)
}

// Coordinates is the capability contract shared by every coordinate variant.
// Optional fields that are absent are reported as the empty string.
type Coordinates interface {
	// Format returns the packaging format of the variant.
	Format() Format

	// Extension returns the file extension without a leading dot
	// (e.g. "jar", "jar.sha1", "whl", "tar.gz").
	Extension() string

	// Classifier returns the qualifier distinguishing artifacts of the same
	// version, or "" when there is none.
	Classifier() string

	// Version returns the version-equivalent field used for grouping.
	Version() string

	// GroupKey returns the logical identity ignoring version
	// (groupId:artifactId for Maven, distribution for PyPI).
	GroupKey() string

	// Path reconstructs a path the same parser accepts.
	Path() string
}

// Parser parses a raw storage path into coordinates for one format.
// Implementations are pure and safe for concurrent use.
type Parser interface {
	Format() Format
	Parse(path string) (Coordinates, error)
}

var (
	// ErrInvalidCoordinate matches any error returned for a path that does
	// not follow its format's grammar.
	ErrInvalidCoordinate = pkgerrors.Sentinel(pkgerrors.ErrCodeInvalidCoordinate)

	// ErrUnsupportedFormat matches registry lookups for unknown formats.
	ErrUnsupportedFormat = pkgerrors.Sentinel(pkgerrors.ErrCodeUnsupportedFormat)
)

func invalidCoordinate(format Format, path, reason string) error {
	return pkgerrors.New(pkgerrors.ErrCodeInvalidCoordinate,
		"invalid "+string(format)+" path '"+path+"': "+reason, nil).
		WithDetail("format", string(format)).
		WithDetail("path", path)
}
