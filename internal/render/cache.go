package render

import (
	"bytes"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache keeps recently rendered images keyed by what they depict.
// Rendering errors are never cached.
type Cache struct {
	entries *lru.Cache[string, []byte]
}

// NewCache creates a cache holding at most size images
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create render cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// GetOrRender returns the cached bytes for key, drawing them on a miss.
// hit reports whether the bytes came from the cache.
func (c *Cache) GetOrRender(key string, draw func(io.Writer) error) (data []byte, hit bool, err error) {
	if data, ok := c.entries.Get(key); ok {
		return data, true, nil
	}
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		return nil, false, err
	}
	data = buf.Bytes()
	c.entries.Add(key, data)
	return data, false, nil
}

// Len returns the number of cached images
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry
func (c *Cache) Purge() {
	c.entries.Purge()
}
