package indexing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/pkgindex/internal/artifact"
	"github.com/Aman-CERP/pkgindex/internal/coordinates"
)

func TestResolveSiblings_FullSet(t *testing.T) {
	// Given: a jar with pom, sources and javadoc next to it
	group := mavenEntries(t,
		"org/x/lib/1.0/lib-1.0.jar",
		"org/x/lib/1.0/lib-1.0.pom",
		"org/x/lib/1.0/lib-1.0-sources.jar",
		"org/x/lib/1.0/lib-1.0-javadoc.jar",
	)

	// When: resolving the jar against the other three
	flags := ResolveSiblings(group[0], group[1:], MavenSiblingRules)

	// Then: every flag is set
	assert.Equal(t, SiblingFlags{HasParentDescriptor: true, HasSources: true, HasJavadoc: true}, flags)
}

func TestResolveSiblings_EmptySiblings(t *testing.T) {
	jar := mavenEntries(t, "org/x/lib/1.0/lib-1.0.jar")[0]

	assert.Equal(t, SiblingFlags{}, ResolveSiblings(jar, nil, MavenSiblingRules))
	assert.Equal(t, SiblingFlags{}, ResolveSiblings(jar, []*artifact.Entry{}, MavenSiblingRules))
}

func TestResolveSiblings_DescriptorAndDocsReportNothing(t *testing.T) {
	group := mavenEntries(t,
		"org/x/lib/1.0/lib-1.0.jar",
		"org/x/lib/1.0/lib-1.0.pom",
		"org/x/lib/1.0/lib-1.0-sources.jar",
		"org/x/lib/1.0/lib-1.0-javadoc.jar",
	)

	for i := 1; i < len(group); i++ {
		t.Run(group[i].Filename(), func(t *testing.T) {
			flags := ResolveSiblings(group[i], siblingsOf(group, i), MavenSiblingRules)
			assert.Equal(t, SiblingFlags{}, flags)
		})
	}
}

func TestResolveSiblings_ExtensionMustMatchForDocs(t *testing.T) {
	// Given: a war target whose sources are published as a jar
	group := mavenEntries(t,
		"org/x/app/1.0/app-1.0.war",
		"org/x/app/1.0/app-1.0-sources.jar",
		"org/x/app/1.0/app-1.0-javadoc.jar",
	)

	flags := ResolveSiblings(group[0], group[1:], MavenSiblingRules)

	// Then: docs of another extension do not count, and there is no pom
	assert.Equal(t, SiblingFlags{}, flags)
}

func TestResolveSiblings_ClassifiedPomIsNotParent(t *testing.T) {
	group := mavenEntries(t,
		"org/x/lib/1.0/lib-1.0.jar",
		"org/x/lib/1.0/lib-1.0-site.pom",
	)

	flags := ResolveSiblings(group[0], group[1:], MavenSiblingRules)
	assert.False(t, flags.HasParentDescriptor)
}

func TestResolveSiblings_OrderIndependent(t *testing.T) {
	group := mavenEntries(t,
		"org/x/lib/1.0/lib-1.0.jar",
		"org/x/lib/1.0/lib-1.0.pom",
		"org/x/lib/1.0/lib-1.0-sources.jar",
		"org/x/lib/1.0/lib-1.0-javadoc.jar",
		"org/x/lib/1.0/lib-1.0-tests.jar",
		"org/x/lib/1.0/lib-1.0.jar.sha1",
	)
	target, siblings := group[0], group[1:]
	want := ResolveSiblings(target, siblings, MavenSiblingRules)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]*artifact.Entry(nil), siblings...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, ResolveSiblings(target, shuffled, MavenSiblingRules))
	}
}

func TestResolveSiblings_PypiHasNoSiblingFlags(t *testing.T) {
	wheel := entry(t, coordinates.FormatPypi, "numpy-1.21.0-cp39-cp39-manylinux1_x86_64.whl")
	sdist := entry(t, coordinates.FormatPypi, "numpy-1.21.0.tar.gz")

	flags := ResolveSiblings(wheel, []*artifact.Entry{sdist}, RulesFor(coordinates.FormatPypi))
	assert.Equal(t, SiblingFlags{}, flags)
	assert.Equal(t, MavenSiblingRules, RulesFor(coordinates.FormatMaven))
}
