package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/joshdurbin/shortlink/internal/cache"
)

// Cache implements cache.Cache with an in-process TTL cache
type Cache struct {
	data *gocache.Cache
}

// New creates a cache whose entries expire after ttl
func New(ttl time.Duration) *Cache {
	return &Cache{
		data: gocache.New(ttl, 2*ttl),
	}
}

// Get retrieves a copy of the entry for shortCode
func (c *Cache) Get(ctx context.Context, shortCode string) (*cache.Entry, bool) {
	v, ok := c.data.Get(shortCode)
	if !ok {
		return nil, false
	}
	entry := v.(cache.Entry)
	return &entry, true
}

// Set stores a copy of entry
func (c *Cache) Set(ctx context.Context, shortCode string, entry *cache.Entry) error {
	c.data.SetDefault(shortCode, *entry)
	return nil
}

// Delete removes the entry for shortCode
func (c *Cache) Delete(ctx context.Context, shortCode string) error {
	c.data.Delete(shortCode)
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted
func (c *Cache) Len() int {
	return c.data.ItemCount()
}

// Close drops every entry
func (c *Cache) Close() error {
	c.data.Flush()
	return nil
}

// Nop is a cache that never stores anything, used when caching is disabled
type Nop struct{}

// Get always misses
func (Nop) Get(ctx context.Context, shortCode string) (*cache.Entry, bool) {
	return nil, false
}

// Set discards the entry
func (Nop) Set(ctx context.Context, shortCode string, entry *cache.Entry) error {
	return nil
}

// Delete does nothing
func (Nop) Delete(ctx context.Context, shortCode string) error {
	return nil
}

// Close does nothing
func (Nop) Close() error {
	return nil
}

var (
	_ cache.Cache = (*Cache)(nil)
	_ cache.Cache = Nop{}
)
