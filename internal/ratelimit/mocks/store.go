package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/shortlink/internal/ratelimit"
)

// CounterStore is a mock implementation of ratelimit.CounterStore
type CounterStore struct {
	mock.Mock
}

// Take mocks the Take method
func (m *CounterStore) Take(ctx context.Context, key string, capacity int64, window time.Duration) (ratelimit.Window, error) {
	args := m.Called(ctx, key, capacity, window)
	return args.Get(0).(ratelimit.Window), args.Error(1)
}

// Ping mocks the Ping method
func (m *CounterStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Limiter is a mock implementation of ratelimit.Limiter
type Limiter struct {
	mock.Mock
}

// Admit mocks the Admit method
func (m *Limiter) Admit(ctx context.Context, scope ratelimit.Scope, identity, path string) (ratelimit.Decision, error) {
	args := m.Called(ctx, scope, identity, path)
	return args.Get(0).(ratelimit.Decision), args.Error(1)
}
