package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/metrics"
)

// FixedWindow enforces per-key request budgets using a shared CounterStore
type FixedWindow struct {
	store   CounterStore
	config  Config
	local   *LocalFallback
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewFixedWindow creates a fixed-window limiter over store
func NewFixedWindow(store CounterStore, config Config, m *metrics.Metrics, logger *slog.Logger) (*FixedWindow, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &FixedWindow{
		store:   store,
		config:  config,
		metrics: m,
		logger:  logger.With("component", "ratelimit"),
	}
	if config.FailPolicy == FailLocal {
		l.local = NewLocalFallback(0)
	}
	return l, nil
}

// Validate checks the limits and fail policy
func (c Config) Validate() error {
	scopes := []struct {
		name  Scope
		limit ScopeLimit
	}{
		{ScopeAuthenticated, c.Authenticated},
		{ScopeAnonymous, c.Anonymous},
	}
	for _, s := range scopes {
		if s.limit.Capacity <= 0 {
			return fmt.Errorf("%s rate limit capacity must be positive, got: %d", s.name, s.limit.Capacity)
		}
		if s.limit.Window <= 0 {
			return fmt.Errorf("%s rate limit window must be positive, got: %v", s.name, s.limit.Window)
		}
	}

	switch c.FailPolicy {
	case FailOpen, FailClosed, FailLocal:
	default:
		return fmt.Errorf("unknown rate limit fail policy: %q", c.FailPolicy)
	}

	return nil
}

// Limit returns the configured limit for scope
func (l *FixedWindow) Limit(scope Scope) ScopeLimit {
	if scope == ScopeAuthenticated {
		return l.config.Authenticated
	}
	return l.config.Anonymous
}

// Admit counts the request against its window. A non-nil error means the
// store was unreachable and the decision came from the fail policy.
func (l *FixedWindow) Admit(ctx context.Context, scope Scope, identity, path string) (Decision, error) {
	limit := l.Limit(scope)
	key := Key(scope, identity, path)

	ctx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	defer cancel()

	window, err := l.store.Take(ctx, key, limit.Capacity, limit.Window)
	if err != nil {
		return l.degrade(scope, key, limit, err)
	}

	decision := Decision{
		Allowed:    window.Allowed,
		Limit:      limit.Capacity,
		Remaining:  max(limit.Capacity-window.Count, 0),
		RetryAfter: retryAfter(window.ResetIn, limit.Window),
	}
	if decision.Allowed {
		l.metrics.RateLimitDecisions.WithLabelValues(string(scope), "allowed").Inc()
	} else {
		l.metrics.RateLimitDecisions.WithLabelValues(string(scope), "denied").Inc()
	}
	return decision, nil
}

func (l *FixedWindow) degrade(scope Scope, key string, limit ScopeLimit, cause error) (Decision, error) {
	l.metrics.CounterStoreErrors.Inc()
	err := domain.WrapError(domain.ErrStoreUnavailable, "counter store unavailable", cause)

	decision := Decision{Limit: limit.Capacity}
	switch l.config.FailPolicy {
	case FailClosed:
		decision.RetryAfter = time.Second
	case FailLocal:
		decision.Allowed, decision.RetryAfter = l.local.Allow(key, limit)
	default:
		decision.Allowed = true
		decision.Remaining = limit.Capacity
	}

	l.metrics.RateLimitDecisions.WithLabelValues(string(scope), "fail_"+string(l.config.FailPolicy)).Inc()
	l.logger.Warn("counter store unavailable, applying fail policy",
		"policy", l.config.FailPolicy,
		"key", key,
		"allowed", decision.Allowed,
		"error", cause,
	)
	return decision, err
}

// retryAfter rounds the remaining window up to whole seconds, at least one.
func retryAfter(resetIn, window time.Duration) time.Duration {
	if resetIn <= 0 {
		resetIn = window
	}
	secs := (resetIn + time.Second - 1) / time.Second
	if secs < 1 {
		secs = 1
	}
	return secs * time.Second
}

var _ Limiter = (*FixedWindow)(nil)
