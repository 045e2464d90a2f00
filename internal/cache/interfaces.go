package cache

import (
	"context"
)

// Entry is the cached part of a ShortLink needed to serve a redirect
type Entry struct {
	LinkID  string
	Owner   string
	LongURL string
}

// Cache is a lookup cache in front of the durable store. Click counts are
// never cached; every redirect still increments in the store.
type Cache interface {
	// Get retrieves an entry by short code
	Get(ctx context.Context, shortCode string) (*Entry, bool)

	// Set stores an entry
	Set(ctx context.Context, shortCode string, entry *Entry) error

	// Delete removes an entry
	Delete(ctx context.Context, shortCode string) error

	// Close releases cache resources
	Close() error
}
