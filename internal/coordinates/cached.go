package coordinates

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultParseCacheSize is the default number of parsed paths kept per format.
const DefaultParseCacheSize = 4096

// CachedParser wraps a Parser with an LRU cache keyed by path. Ingestion
// re-parses the same paths on every rescan of a repository.
// Failed parses are not cached.
type CachedParser struct {
	inner Parser
	cache *lru.Cache[string, Coordinates]
}

// NewCachedParser creates a cached parser wrapping inner.
func NewCachedParser(inner Parser, size int) *CachedParser {
	if size <= 0 {
		size = DefaultParseCacheSize
	}
	cache, _ := lru.New[string, Coordinates](size)
	return &CachedParser{
		inner: inner,
		cache: cache,
	}
}

// Format implements Parser.
func (c *CachedParser) Format() Format {
	return c.inner.Format()
}

// Parse implements Parser.
func (c *CachedParser) Parse(path string) (Coordinates, error) {
	if coords, ok := c.cache.Get(path); ok {
		return coords, nil
	}
	coords, err := c.inner.Parse(path)
	if err != nil {
		return nil, err
	}
	c.cache.Add(path, coords)
	return coords, nil
}

// Len returns the number of cached entries.
func (c *CachedParser) Len() int {
	return c.cache.Len()
}

var _ Parser = (*CachedParser)(nil)
