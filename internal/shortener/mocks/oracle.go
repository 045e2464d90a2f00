package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Oracle is a mock implementation of shortener.Oracle
type Oracle struct {
	mock.Mock
}

// CodeExists mocks the CodeExists method
func (m *Oracle) CodeExists(ctx context.Context, shortCode string) (bool, error) {
	args := m.Called(ctx, shortCode)
	return args.Bool(0), args.Error(1)
}
