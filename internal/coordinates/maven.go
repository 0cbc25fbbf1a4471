package coordinates

import (
	"regexp"
	"strings"
)

const snapshotSuffix = "SNAPSHOT"

// snapshotTimestamp matches the unique part of a deployed snapshot file
// version, e.g. "20240131.235959-7".
var snapshotTimestamp = regexp.MustCompile(`^\d{8}\.\d{6}-\d+`)

// MavenCoordinates identifies a file in a Maven repository layout:
//
//	{groupId as dirs}/{artifactId}/{version}/{artifactId}-{fileVersion}[-{classifier}].{extension}
//
// SnapshotVersion holds the timestamped file version of a deployed snapshot
// and is empty otherwise.
type MavenCoordinates struct {
	GroupID            string `json:"group_id"`
	ArtifactID         string `json:"artifact_id"`
	ArtifactVersion    string `json:"version"`
	SnapshotVersion    string `json:"snapshot_version,omitempty"`
	ArtifactClassifier string `json:"classifier,omitempty"`
	ArtifactExtension  string `json:"extension"`
}

func (c *MavenCoordinates) Format() Format     { return FormatMaven }
func (c *MavenCoordinates) Extension() string  { return c.ArtifactExtension }
func (c *MavenCoordinates) Classifier() string { return c.ArtifactClassifier }
func (c *MavenCoordinates) Version() string    { return c.ArtifactVersion }
func (c *MavenCoordinates) GroupKey() string   { return c.GroupID + ":" + c.ArtifactID }

// FileVersion returns the version as it appears in the filename.
func (c *MavenCoordinates) FileVersion() string {
	if c.SnapshotVersion != "" {
		return c.SnapshotVersion
	}
	return c.ArtifactVersion
}

// IsSnapshot reports whether the version is a snapshot.
func (c *MavenCoordinates) IsSnapshot() bool {
	return strings.HasSuffix(c.ArtifactVersion, "-"+snapshotSuffix)
}

// Filename returns the terminal path segment.
func (c *MavenCoordinates) Filename() string {
	var sb strings.Builder
	sb.WriteString(c.ArtifactID)
	sb.WriteByte('-')
	sb.WriteString(c.FileVersion())
	if c.ArtifactClassifier != "" {
		sb.WriteByte('-')
		sb.WriteString(c.ArtifactClassifier)
	}
	sb.WriteByte('.')
	sb.WriteString(c.ArtifactExtension)
	return sb.String()
}

// Path returns the repository layout path.
func (c *MavenCoordinates) Path() string {
	return strings.Join([]string{
		strings.ReplaceAll(c.GroupID, ".", "/"),
		c.ArtifactID,
		c.ArtifactVersion,
		c.Filename(),
	}, "/")
}

// MavenParser parses Maven repository layout paths.
type MavenParser struct{}

// NewMavenParser returns a Maven parser.
func NewMavenParser() *MavenParser {
	return &MavenParser{}
}

// Format implements Parser.
func (p *MavenParser) Format() Format {
	return FormatMaven
}

// Parse implements Parser.
func (p *MavenParser) Parse(raw string) (Coordinates, error) {
	segments := strings.Split(strings.Trim(raw, "/"), "/")
	if len(segments) < 4 {
		return nil, invalidCoordinate(FormatMaven, raw, "path must be {groupId}/{artifactId}/{version}/{filename}")
	}
	for _, s := range segments {
		if s == "" {
			return nil, invalidCoordinate(FormatMaven, raw, "empty path segment")
		}
	}

	n := len(segments)
	c := &MavenCoordinates{
		GroupID:         strings.Join(segments[:n-3], "."),
		ArtifactID:      segments[n-3],
		ArtifactVersion: segments[n-2],
	}
	filename := segments[n-1]

	prefix := c.ArtifactID + "-"
	if !strings.HasPrefix(filename, prefix) {
		return nil, invalidCoordinate(FormatMaven, raw, "filename must start with '"+prefix+"'")
	}
	rest := filename[len(prefix):]

	fileVersion, ok := matchFileVersion(rest, c.ArtifactVersion)
	if !ok {
		return nil, invalidCoordinate(FormatMaven, raw, "filename does not carry version '"+c.ArtifactVersion+"'")
	}
	if fileVersion != c.ArtifactVersion {
		c.SnapshotVersion = fileVersion
	}
	rest = rest[len(fileVersion):]

	if strings.HasPrefix(rest, "-") {
		dot := strings.IndexByte(rest, '.')
		if dot < 0 {
			return nil, invalidCoordinate(FormatMaven, raw, "missing extension")
		}
		c.ArtifactClassifier = rest[1:dot]
		if c.ArtifactClassifier == "" {
			return nil, invalidCoordinate(FormatMaven, raw, "empty classifier")
		}
		rest = rest[dot:]
	}

	if !strings.HasPrefix(rest, ".") || len(rest) == 1 {
		return nil, invalidCoordinate(FormatMaven, raw, "missing extension")
	}
	c.ArtifactExtension = rest[1:]
	return c, nil
}

// matchFileVersion returns the version prefix of rest, accepting the
// timestamped form for snapshot versions.
func matchFileVersion(rest, version string) (string, bool) {
	if strings.HasPrefix(rest, version) && boundary(rest[len(version):]) {
		return version, true
	}
	if !strings.HasSuffix(version, "-"+snapshotSuffix) {
		return "", false
	}
	base := strings.TrimSuffix(version, snapshotSuffix)
	if !strings.HasPrefix(rest, base) {
		return "", false
	}
	stamp := snapshotTimestamp.FindString(rest[len(base):])
	if stamp == "" || !boundary(rest[len(base)+len(stamp):]) {
		return "", false
	}
	return base + stamp, true
}

func boundary(s string) bool {
	return strings.HasPrefix(s, "-") || strings.HasPrefix(s, ".")
}

var _ Parser = (*MavenParser)(nil)
