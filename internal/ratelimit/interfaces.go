package ratelimit

import (
	"context"
	"time"
)

// Scope classifies a request for key derivation and limits
type Scope string

const (
	ScopeAuthenticated Scope = "authenticated"
	ScopeAnonymous     Scope = "anonymous"
)

// FailPolicy decides what happens when the counter store cannot be reached
type FailPolicy string

const (
	// FailOpen admits every request while the store is down
	FailOpen FailPolicy = "open"
	// FailClosed rejects every request while the store is down
	FailClosed FailPolicy = "closed"
	// FailLocal falls back to per-instance token buckets while the store is down
	FailLocal FailPolicy = "local"
)

// Window is the state of one fixed-window counter after a Take
type Window struct {
	Count   int64
	Allowed bool
	ResetIn time.Duration
}

// Decision is the outcome of Admit
type Decision struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// CounterStore is the shared key-value store holding window counters
type CounterStore interface {
	// Take admits one request against key when its count is below capacity.
	// Creating the counter and setting its expiry must be atomic with the increment.
	Take(ctx context.Context, key string, capacity int64, window time.Duration) (Window, error)

	// Ping checks the store is reachable
	Ping(ctx context.Context) error
}

// Limiter decides whether a request is admitted
type Limiter interface {
	Admit(ctx context.Context, scope Scope, identity, path string) (Decision, error)
}

// ScopeLimit is the capacity and window length of one scope
type ScopeLimit struct {
	Capacity int64         `yaml:"capacity"`
	Window   time.Duration `yaml:"window"`
}

// Config holds rate limiting configuration
type Config struct {
	Authenticated ScopeLimit    `yaml:"authenticated"`
	Anonymous     ScopeLimit    `yaml:"anonymous"`
	FailPolicy    FailPolicy    `yaml:"fail_policy"`
	Timeout       time.Duration `yaml:"timeout"`
	ExcludedPaths []string      `yaml:"excluded_paths"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Authenticated: ScopeLimit{Capacity: 100, Window: time.Minute},
		Anonymous:     ScopeLimit{Capacity: 100, Window: 5 * time.Minute},
		FailPolicy:    FailOpen,
		Timeout:       100 * time.Millisecond,
		ExcludedPaths: []string{"/healthz", "/metrics"},
	}
}
