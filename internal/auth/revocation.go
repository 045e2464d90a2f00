package auth

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked_token:"

// Revocations tracks tokens revoked before their natural expiry
type Revocations interface {
	// Revoke marks the token id as revoked for ttl
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error

	// IsRevoked reports whether the token id was revoked
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevocations stores revoked token ids in Redis, shared by every instance.
// Entries expire together with the token they revoke.
type RedisRevocations struct {
	client redis.UniversalClient
}

// NewRedisRevocations creates a Redis-backed revocation list
func NewRedisRevocations(client redis.UniversalClient) *RedisRevocations {
	return &RedisRevocations{client: client}
}

// Revoke stores the token id until ttl elapses
func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks for the token id
func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// MemoryRevocations keeps revoked token ids in process memory for single-node runs
type MemoryRevocations struct {
	revoked *gocache.Cache
}

// NewMemoryRevocations creates an in-memory revocation list
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		revoked: gocache.New(gocache.NoExpiration, time.Minute),
	}
}

// Revoke stores the token id until ttl elapses
func (r *MemoryRevocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.revoked.Set(tokenID, struct{}{}, ttl)
	return nil
}

// IsRevoked checks for a live entry for the token id
func (r *MemoryRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, ok := r.revoked.Get(tokenID)
	return ok, nil
}

var (
	_ Revocations = (*RedisRevocations)(nil)
	_ Revocations = (*MemoryRevocations)(nil)
)
