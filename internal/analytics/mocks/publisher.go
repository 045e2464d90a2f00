package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// Publisher is a mock implementation of analytics.Publisher
type Publisher struct {
	mock.Mock
}

// Publish mocks the Publish method
func (m *Publisher) Publish(ctx context.Context, event *domain.ClickEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// Close mocks the Close method
func (m *Publisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
