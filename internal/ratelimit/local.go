package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultLocalMaxKeys = 10000

// LocalFallback keeps per-instance token buckets used while the shared store is down.
// Budgets are only approximate because every instance counts on its own.
type LocalFallback struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	maxKeys  int
}

// NewLocalFallback creates a fallback holding at most maxKeys buckets
func NewLocalFallback(maxKeys int) *LocalFallback {
	if maxKeys <= 0 {
		maxKeys = defaultLocalMaxKeys
	}
	return &LocalFallback{
		limiters: make(map[string]*rate.Limiter),
		maxKeys:  maxKeys,
	}
}

// Allow takes one token from key's bucket, refilled at capacity per window
func (f *LocalFallback) Allow(key string, limit ScopeLimit) (bool, time.Duration) {
	f.mu.Lock()
	lim, ok := f.limiters[key]
	if !ok {
		if len(f.limiters) >= f.maxKeys {
			f.limiters = make(map[string]*rate.Limiter)
		}
		every := limit.Window / time.Duration(limit.Capacity)
		lim = rate.NewLimiter(rate.Every(every), int(limit.Capacity))
		f.limiters[key] = lim
	}
	f.mu.Unlock()

	now := time.Now()
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, limit.Window
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
		return false, retryAfter(delay, limit.Window)
	}
	return true, 0
}
