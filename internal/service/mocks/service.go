package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// URLShortener is a mock implementation of service.URLShortener
type URLShortener struct {
	mock.Mock
}

// Shorten mocks the Shorten method
func (m *URLShortener) Shorten(ctx context.Context, owner, longURL string) (*domain.ShortLink, error) {
	args := m.Called(ctx, owner, longURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortLink), args.Error(1)
}

// Resolve mocks the Resolve method
func (m *URLShortener) Resolve(ctx context.Context, shortCode string, visit domain.Visit) (string, error) {
	args := m.Called(ctx, shortCode, visit)
	return args.String(0), args.Error(1)
}

// GetURL mocks the GetURL method
func (m *URLShortener) GetURL(ctx context.Context, owner, shortCode string) (*domain.ShortLink, error) {
	args := m.Called(ctx, owner, shortCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortLink), args.Error(1)
}

// ListURLs mocks the ListURLs method
func (m *URLShortener) ListURLs(ctx context.Context, owner string) ([]*domain.ShortLink, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ShortLink), args.Error(1)
}

// DeleteURL mocks the DeleteURL method
func (m *URLShortener) DeleteURL(ctx context.Context, owner, shortCode string) error {
	args := m.Called(ctx, owner, shortCode)
	return args.Error(0)
}

// Analytics mocks the Analytics method
func (m *URLShortener) Analytics(ctx context.Context, owner, shortCode string) (*domain.Analytics, error) {
	args := m.Called(ctx, owner, shortCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analytics), args.Error(1)
}
