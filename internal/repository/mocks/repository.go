package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// Repository is a mock implementation of repository.Repository
type Repository struct {
	mock.Mock
}

// CreateLink mocks the CreateLink method
func (m *Repository) CreateLink(ctx context.Context, link *domain.ShortLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

// GetLink mocks the GetLink method
func (m *Repository) GetLink(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	args := m.Called(ctx, shortCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortLink), args.Error(1)
}

// FindByOwnerAndURL mocks the FindByOwnerAndURL method
func (m *Repository) FindByOwnerAndURL(ctx context.Context, owner, longURL string) (*domain.ShortLink, error) {
	args := m.Called(ctx, owner, longURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortLink), args.Error(1)
}

// ListByOwner mocks the ListByOwner method
func (m *Repository) ListByOwner(ctx context.Context, owner string) ([]*domain.ShortLink, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ShortLink), args.Error(1)
}

// CodeExists mocks the CodeExists method
func (m *Repository) CodeExists(ctx context.Context, shortCode string) (bool, error) {
	args := m.Called(ctx, shortCode)
	return args.Bool(0), args.Error(1)
}

// IncrementClicks mocks the IncrementClicks method
func (m *Repository) IncrementClicks(ctx context.Context, shortCode string) error {
	args := m.Called(ctx, shortCode)
	return args.Error(0)
}

// DeleteLink mocks the DeleteLink method
func (m *Repository) DeleteLink(ctx context.Context, shortCode string) error {
	args := m.Called(ctx, shortCode)
	return args.Error(0)
}

// AppendClick mocks the AppendClick method
func (m *Repository) AppendClick(ctx context.Context, event *domain.ClickEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// ListClicks mocks the ListClicks method
func (m *Repository) ListClicks(ctx context.Context, shortCode string) ([]*domain.ClickEvent, error) {
	args := m.Called(ctx, shortCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ClickEvent), args.Error(1)
}

// Ping mocks the Ping method
func (m *Repository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks the Close method
func (m *Repository) Close() error {
	args := m.Called()
	return args.Error(0)
}
