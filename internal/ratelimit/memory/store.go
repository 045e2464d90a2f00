package memory

import (
	"context"
	"sync"
	"time"

	"github.com/joshdurbin/shortlink/internal/ratelimit"
)

type counter struct {
	count     int64
	expiresAt time.Time
}

// Store implements ratelimit.CounterStore in process memory.
// Counters are not shared across instances; use it for single-node deployments and tests.
type Store struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
	takes    int
}

// New creates an empty in-memory counter store
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates a store reading time from now
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		counters: make(map[string]*counter),
		now:      now,
	}
}

// Take admits one request against key when below capacity
func (s *Store) Take(ctx context.Context, key string, capacity int64, window time.Duration) (ratelimit.Window, error) {
	if err := ctx.Err(); err != nil {
		return ratelimit.Window{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.takes++
	if s.takes%1024 == 0 {
		s.sweep(now)
	}

	c, ok := s.counters[key]
	if !ok || !now.Before(c.expiresAt) {
		c = &counter{expiresAt: now.Add(window)}
		s.counters[key] = c
	}

	resetIn := c.expiresAt.Sub(now)
	if c.count >= capacity {
		return ratelimit.Window{Count: c.count, Allowed: false, ResetIn: resetIn}, nil
	}

	c.count++
	return ratelimit.Window{Count: c.count, Allowed: true, ResetIn: resetIn}, nil
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of live counters
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(s.now())
	return len(s.counters)
}

func (s *Store) sweep(now time.Time) {
	for key, c := range s.counters {
		if !now.Before(c.expiresAt) {
			delete(s.counters, key)
		}
	}
}

var _ ratelimit.CounterStore = (*Store)(nil)
