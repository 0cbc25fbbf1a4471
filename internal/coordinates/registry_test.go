package coordinates

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/Aman-CERP/pkgindex/internal/errors"
)

func TestRegistry_ResolveKnownFormats(t *testing.T) {
	r := DefaultRegistry()

	p, err := r.Resolve("maven")
	require.NoError(t, err)
	assert.Equal(t, FormatMaven, p.Format())

	p, err = r.Resolve("PyPI")
	require.NoError(t, err)
	assert.Equal(t, FormatPypi, p.Format())

	assert.Equal(t, []Format{FormatMaven, FormatPypi}, r.Formats())
}

func TestRegistry_ResolveUnknownFormat(t *testing.T) {
	// When: resolving an unregistered format
	_, err := DefaultRegistry().Resolve("npm")

	// Then: UnsupportedFormat, fatal and not retryable
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	assert.True(t, pkgerrors.IsFatal(err))
	assert.False(t, pkgerrors.IsRetryable(err))

	pe, ok := pkgerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "npm", pe.Details["format"])
	assert.Contains(t, pe.Suggestion, "maven, pypi")
}

func TestRegistry_Parse(t *testing.T) {
	c, err := DefaultRegistry().Parse("pypi", "Flask-2.3.2.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, "Flask", c.GroupKey())

	_, err = DefaultRegistry().Parse("pypi", "Flask-2.3.2.zip")
	assert.True(t, errors.Is(err, ErrInvalidCoordinate))
}

func TestRegistry_ConcurrentParsing(t *testing.T) {
	r := DefaultRegistry().Cached(16)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := r.Parse("maven", "com/example/lib/1.0/lib-1.0.jar")
			assert.NoError(t, err)
			assert.Equal(t, "1.0", c.Version())
		}()
	}
	wg.Wait()
}

type countingParser struct {
	inner Parser
	calls int
}

func (c *countingParser) Format() Format { return c.inner.Format() }
func (c *countingParser) Parse(path string) (Coordinates, error) {
	c.calls++
	return c.inner.Parse(path)
}

func TestCachedParser_CachesSuccessOnly(t *testing.T) {
	// Given: a cached parser over a counting parser
	inner := &countingParser{inner: NewPypiParser()}
	cached := NewCachedParser(inner, 8)

	// When: parsing the same valid path twice
	_, err := cached.Parse("Flask-2.3.2.tar.gz")
	require.NoError(t, err)
	_, err = cached.Parse("Flask-2.3.2.tar.gz")
	require.NoError(t, err)

	// Then: the inner parser ran once
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cached.Len())

	// And: invalid paths are parsed every time
	_, _ = cached.Parse("bad.zip")
	_, _ = cached.Parse("bad.zip")
	assert.Equal(t, 3, inner.calls)
}

func TestCodec_RoundTrip(t *testing.T) {
	c, err := DefaultRegistry().Parse("pypi", "requests-2.31.0-1-py3-none-any.whl")
	require.NoError(t, err)

	data, err := Encode(c)
	require.NoError(t, err)

	decoded, err := Decode(FormatPypi, data)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)

	_, err = Decode("npm", data)
	assert.Error(t, err)
}
