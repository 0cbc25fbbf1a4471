package indexing

import (
	"github.com/Aman-CERP/pkgindex/internal/artifact"
	"github.com/Aman-CERP/pkgindex/internal/coordinates"
)

// SiblingFlags records which related artifacts exist next to an entry in
// its version group.
type SiblingFlags struct {
	HasParentDescriptor bool `json:"has_parent_descriptor"`
	HasSources          bool `json:"has_sources"`
	HasJavadoc          bool `json:"has_javadoc"`
}

// SiblingRules names a format's descriptor extension and documentation
// classifiers. Empty fields never match.
type SiblingRules struct {
	DescriptorExtension string
	SourcesClassifier   string
	JavadocClassifier   string
}

// MavenSiblingRules are the rules of the Maven layout.
var MavenSiblingRules = SiblingRules{
	DescriptorExtension: "pom",
	SourcesClassifier:   "sources",
	JavadocClassifier:   "javadoc",
}

// RulesFor returns the sibling rules of a format. PyPI publishes no
// descriptor or documentation artifacts, so its rules are empty.
func RulesFor(format coordinates.Format) SiblingRules {
	if format == coordinates.FormatMaven {
		return MavenSiblingRules
	}
	return SiblingRules{}
}

func (r SiblingRules) isZero() bool {
	return r == SiblingRules{}
}

func (r SiblingRules) isDescriptorOrDocs(c coordinates.Coordinates) bool {
	return matches(r.DescriptorExtension, c.Extension()) ||
		matches(r.SourcesClassifier, c.Classifier()) ||
		matches(r.JavadocClassifier, c.Classifier())
}

func matches(rule, value string) bool {
	return rule != "" && rule == value
}

// ResolveSiblings computes the flags of target against the other entries
// of its version group. siblings must not contain target itself. The
// result does not depend on the order of siblings.
func ResolveSiblings(target *artifact.Entry, siblings []*artifact.Entry, rules SiblingRules) SiblingFlags {
	var flags SiblingFlags
	if len(siblings) == 0 || rules.isZero() || target.Coordinates == nil {
		return flags
	}

	tc := target.Coordinates
	if rules.isDescriptorOrDocs(tc) {
		return flags
	}

	for _, s := range siblings {
		sc := s.Coordinates
		if sc == nil {
			continue
		}
		if matches(rules.DescriptorExtension, sc.Extension()) && sc.Classifier() == "" {
			flags.HasParentDescriptor = true
		}
		if sc.Extension() != tc.Extension() {
			continue
		}
		if matches(rules.JavadocClassifier, sc.Classifier()) {
			flags.HasJavadoc = true
		}
		if matches(rules.SourcesClassifier, sc.Classifier()) {
			flags.HasSources = true
		}
	}
	return flags
}
