package store

import (
	"fmt"

	"github.com/Aman-CERP/pkgindex/internal/coordinates"
	"github.com/Aman-CERP/pkgindex/internal/indexing"
)

// Creator names.
const (
	MinimalCreatorName      = "minimal"
	FormatFieldsCreatorName = "format_fields"
)

// MinimalCreator writes the fields every entry has: location, identity,
// file variant and sibling flags.
type MinimalCreator struct{}

// Name implements indexing.Creator.
func (MinimalCreator) Name() string { return MinimalCreatorName }

// Populate implements indexing.Creator.
func (MinimalCreator) Populate(doc indexing.Document, e indexing.IndexEntry) {
	entry := e.Entry
	doc["storage_id"] = entry.StorageID
	doc["repository_id"] = entry.RepositoryID
	doc["path"] = entry.Path
	doc["filename"] = entry.Filename()

	c := entry.Coordinates
	if c == nil {
		return
	}
	doc["format"] = string(c.Format())
	doc["group_key"] = c.GroupKey()
	doc["version"] = c.Version()
	doc["extension"] = c.Extension()
	if c.Classifier() != "" {
		doc["classifier"] = c.Classifier()
	}

	doc["has_parent_descriptor"] = e.Flags.HasParentDescriptor
	doc["has_sources"] = e.Flags.HasSources
	doc["has_javadoc"] = e.Flags.HasJavadoc
}

// FormatFieldsCreator writes the format-specific coordinate fields.
type FormatFieldsCreator struct{}

// Name implements indexing.Creator.
func (FormatFieldsCreator) Name() string { return FormatFieldsCreatorName }

// Populate implements indexing.Creator.
func (FormatFieldsCreator) Populate(doc indexing.Document, e indexing.IndexEntry) {
	switch c := e.Entry.Coordinates.(type) {
	case *coordinates.MavenCoordinates:
		doc["group_id"] = c.GroupID
		doc["artifact_id"] = c.ArtifactID
		doc["snapshot"] = c.IsSnapshot()
		if c.SnapshotVersion != "" {
			doc["snapshot_version"] = c.SnapshotVersion
		}
	case *coordinates.PypiCoordinates:
		doc["distribution"] = c.Distribution
		if !c.IsWheel() {
			doc["package_kind"] = "sdist"
			return
		}
		doc["package_kind"] = "wheel"
		doc["python_tag"] = c.LanguageImplementationVersion
		doc["abi"] = c.ABI
		doc["platform"] = c.Platform
		if c.HasBuild() {
			doc["build"] = c.Build
		}
	}
}

// DefaultCreators returns every built-in creator.
func DefaultCreators() []indexing.Creator {
	return []indexing.Creator{MinimalCreator{}, FormatFieldsCreator{}}
}

// CreatorsByName resolves creator names, keeping their order.
func CreatorsByName(names []string) ([]indexing.Creator, error) {
	if len(names) == 0 {
		return DefaultCreators(), nil
	}
	out := make([]indexing.Creator, 0, len(names))
	for _, n := range names {
		switch n {
		case MinimalCreatorName:
			out = append(out, MinimalCreator{})
		case FormatFieldsCreatorName:
			out = append(out, FormatFieldsCreator{})
		default:
			return nil, fmt.Errorf("unknown index creator '%s'", n)
		}
	}
	return out, nil
}

func creatorNames(creators []indexing.Creator) []string {
	names := make([]string, len(creators))
	for i, c := range creators {
		names[i] = c.Name()
	}
	return names
}
