package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/shortlink/internal/cache"
)

// Cache is a mock implementation of cache.Cache
type Cache struct {
	mock.Mock
}

// Get mocks the Get method
func (m *Cache) Get(ctx context.Context, shortCode string) (*cache.Entry, bool) {
	args := m.Called(ctx, shortCode)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*cache.Entry), args.Bool(1)
}

// Set mocks the Set method
func (m *Cache) Set(ctx context.Context, shortCode string, entry *cache.Entry) error {
	args := m.Called(ctx, shortCode, entry)
	return args.Error(0)
}

// Delete mocks the Delete method
func (m *Cache) Delete(ctx context.Context, shortCode string) error {
	args := m.Called(ctx, shortCode)
	return args.Error(0)
}

// Close mocks the Close method
func (m *Cache) Close() error {
	args := m.Called()
	return args.Error(0)
}
