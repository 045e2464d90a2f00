package service

import (
	"context"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// URLShortener defines the interface for the URL shortening service
type URLShortener interface {
	// Shorten returns the owner's link for longURL, creating it on first use
	Shorten(ctx context.Context, owner, longURL string) (*domain.ShortLink, error)

	// Resolve returns the long URL for shortCode and records the click
	Resolve(ctx context.Context, shortCode string, visit domain.Visit) (string, error)

	// GetURL returns a link owned by owner
	GetURL(ctx context.Context, owner, shortCode string) (*domain.ShortLink, error)

	// ListURLs returns every live link owned by owner
	ListURLs(ctx context.Context, owner string) ([]*domain.ShortLink, error)

	// DeleteURL deletes a link owned by owner
	DeleteURL(ctx context.Context, owner, shortCode string) error

	// Analytics aggregates the click events of a link owned by owner
	Analytics(ctx context.Context, owner, shortCode string) (*domain.Analytics, error)
}
