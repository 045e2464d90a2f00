package repository

import (
	"context"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// LinkRepository persists ShortLinks. Deleted links keep their short code
// reserved so a code is never handed out twice.
type LinkRepository interface {
	// CreateLink inserts a link. Returns domain.ErrCodeTaken when the short code
	// is already used and domain.ErrLinkExists when the owner already shortened the URL.
	CreateLink(ctx context.Context, link *domain.ShortLink) error

	// GetLink returns the live link with the given code or domain.ErrNotFound
	GetLink(ctx context.Context, shortCode string) (*domain.ShortLink, error)

	// FindByOwnerAndURL returns the owner's live link for longURL or domain.ErrNotFound
	FindByOwnerAndURL(ctx context.Context, owner, longURL string) (*domain.ShortLink, error)

	// ListByOwner returns the owner's live links, newest first
	ListByOwner(ctx context.Context, owner string) ([]*domain.ShortLink, error)

	// CodeExists reports whether a code was ever allocated, including deleted links
	CodeExists(ctx context.Context, shortCode string) (bool, error)

	// IncrementClicks atomically adds one to the link's click count or returns domain.ErrNotFound
	IncrementClicks(ctx context.Context, shortCode string) error

	// DeleteLink tombstones the link or returns domain.ErrNotFound
	DeleteLink(ctx context.Context, shortCode string) error
}

// ClickRepository is the durable log of click events
type ClickRepository interface {
	// AppendClick stores a click event
	AppendClick(ctx context.Context, event *domain.ClickEvent) error

	// ListClicks returns the events recorded for a code, oldest first
	ListClicks(ctx context.Context, shortCode string) ([]*domain.ClickEvent, error)
}

// Repository is the full durable store
type Repository interface {
	LinkRepository
	ClickRepository

	// Ping checks the store is reachable
	Ping(ctx context.Context) error

	// Close releases the underlying connections
	Close() error
}
