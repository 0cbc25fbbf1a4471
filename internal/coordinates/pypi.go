package coordinates

import (
	"path"
	"strings"
)

const (
	// PypiSourceExtension is the extension of a source distribution.
	PypiSourceExtension = "tar.gz"
	// PypiWheelExtension is the extension of a wheel package.
	PypiWheelExtension = "whl"
)

// PypiCoordinates identifies a PyPI source distribution or wheel.
//
// Source distributions: {distribution}-{version}.tar.gz
// Wheels: {distribution}-{version}(-{build})?-{python}-{abi}-{platform}.whl
//
// Build, LanguageImplementationVersion, ABI and Platform are empty for
// source distributions. Build is also empty for wheels without a build tag.
type PypiCoordinates struct {
	Distribution                  string `json:"distribution"`
	PackageVersion                string `json:"version"`
	Build                         string `json:"build,omitempty"`
	LanguageImplementationVersion string `json:"language_implementation_version,omitempty"`
	ABI                           string `json:"abi,omitempty"`
	Platform                      string `json:"platform,omitempty"`
	PackageExtension              string `json:"extension"`
}

func (c *PypiCoordinates) Format() Format     { return FormatPypi }
func (c *PypiCoordinates) Extension() string  { return c.PackageExtension }
func (c *PypiCoordinates) Classifier() string { return "" }
func (c *PypiCoordinates) Version() string    { return c.PackageVersion }
func (c *PypiCoordinates) GroupKey() string   { return c.Distribution }

// IsWheel reports whether the coordinates describe a wheel package.
func (c *PypiCoordinates) IsWheel() bool {
	return c.PackageExtension == PypiWheelExtension
}

// HasBuild reports whether the wheel carries a build tag.
func (c *PypiCoordinates) HasBuild() bool {
	return c.Build != ""
}

// Path returns the package filename.
func (c *PypiCoordinates) Path() string {
	if !c.IsWheel() {
		return c.Distribution + "-" + c.PackageVersion + "." + PypiSourceExtension
	}
	tokens := []string{c.Distribution, c.PackageVersion}
	if c.HasBuild() {
		tokens = append(tokens, c.Build)
	}
	tokens = append(tokens, c.LanguageImplementationVersion, c.ABI, c.Platform)
	return strings.Join(tokens, "-") + "." + PypiWheelExtension
}

// PypiParser parses PyPI package filenames.
type PypiParser struct{}

// NewPypiParser returns a PyPI parser.
func NewPypiParser() *PypiParser {
	return &PypiParser{}
}

// Format implements Parser.
func (p *PypiParser) Format() Format {
	return FormatPypi
}

// Parse implements Parser. Only the terminal path segment is inspected.
func (p *PypiParser) Parse(raw string) (Coordinates, error) {
	switch {
	case strings.HasSuffix(raw, "."+PypiSourceExtension):
		return parseSourcePackage(raw, path.Base(raw))
	case strings.HasSuffix(raw, "."+PypiWheelExtension):
		return parseWheelPackage(raw, path.Base(raw))
	default:
		return nil, invalidCoordinate(FormatPypi, raw, "packaging can only be '.tar.gz' or '.whl'")
	}
}

func parseSourcePackage(raw, filename string) (*PypiCoordinates, error) {
	tokens := strings.Split(filename, "-")
	if len(tokens) != 2 {
		return nil, invalidCoordinate(FormatPypi, raw, "source package name must be {distribution}-{version}.tar.gz")
	}
	version := strings.TrimSuffix(tokens[1], "."+PypiSourceExtension)
	if err := requireTokens(raw, tokens[0], version); err != nil {
		return nil, err
	}
	return &PypiCoordinates{
		Distribution:     tokens[0],
		PackageVersion:   version,
		PackageExtension: PypiSourceExtension,
	}, nil
}

func parseWheelPackage(raw, filename string) (*PypiCoordinates, error) {
	tokens := strings.Split(filename, "-")
	if len(tokens) != 5 && len(tokens) != 6 {
		return nil, invalidCoordinate(FormatPypi, raw, "wheel package name must have 5 or 6 '-' separated tokens")
	}

	last := len(tokens) - 1
	tokens[last] = strings.TrimSuffix(tokens[last], "."+PypiWheelExtension)
	if err := requireTokens(raw, tokens...); err != nil {
		return nil, err
	}

	c := &PypiCoordinates{
		Distribution:     tokens[0],
		PackageVersion:   tokens[1],
		PackageExtension: PypiWheelExtension,
	}
	rest := tokens[2:]
	if len(tokens) == 6 {
		c.Build = tokens[2]
		rest = tokens[3:]
	}
	c.LanguageImplementationVersion = rest[0]
	c.ABI = rest[1]
	c.Platform = rest[2]
	return c, nil
}

// requireTokens rejects empty tokens so that "" always means absent.
func requireTokens(raw string, tokens ...string) error {
	for _, t := range tokens {
		if t == "" {
			return invalidCoordinate(FormatPypi, raw, "empty token in package name")
		}
	}
	return nil
}

var _ Parser = (*PypiParser)(nil)
