package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/joshdurbin/shortlink/internal/ratelimit"
)

// takeScript runs the whole fixed-window step inside Redis so concurrent
// instances cannot interleave between reading and incrementing a counter.
// Returns {allowed, count, pttl}.
var takeScript = goredis.NewScript(`
local capacity = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local count = tonumber(redis.call('GET', KEYS[1]) or '0')

if count >= capacity then
  local ttl = redis.call('PTTL', KEYS[1])
  if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], window)
    ttl = window
  end
  return {0, count, ttl}
end

count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end
return {1, count, ttl}
`)

// Store implements ratelimit.CounterStore on Redis
type Store struct {
	client goredis.UniversalClient
}

// New creates a Redis-backed counter store
func New(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

// Take admits one request against key when below capacity
func (s *Store) Take(ctx context.Context, key string, capacity int64, window time.Duration) (ratelimit.Window, error) {
	res, err := takeScript.Run(ctx, s.client, []string{key}, capacity, window.Milliseconds()).Int64Slice()
	if err != nil {
		return ratelimit.Window{}, fmt.Errorf("failed to run rate limit script for %s: %w", key, err)
	}
	if len(res) != 3 {
		return ratelimit.Window{}, fmt.Errorf("unexpected rate limit script result: %v", res)
	}

	return ratelimit.Window{
		Allowed: res[0] == 1,
		Count:   res[1],
		ResetIn: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// Ping checks Redis is reachable
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

var _ ratelimit.CounterStore = (*Store)(nil)
