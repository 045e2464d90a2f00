package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/shortlink/internal/testutil"
)

func TestStore_Take_ExactCapacity(t *testing.T) {
	store := New(testutil.Redis(t))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		w, err := store.Take(ctx, "rate_limit:unauth:10.0.0.1", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, w.Allowed)
		assert.Equal(t, int64(i), w.Count)
		assert.Greater(t, w.ResetIn, time.Duration(0))
	}

	w, err := store.Take(ctx, "rate_limit:unauth:10.0.0.1", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, w.Allowed)
	assert.Equal(t, int64(5), w.Count)
	assert.LessOrEqual(t, w.ResetIn, time.Minute)
}

func TestStore_Take_WindowExpires(t *testing.T) {
	store := New(testutil.Redis(t))
	ctx := context.Background()

	w, err := store.Take(ctx, "rate_limit:unauth:short", 1, 300*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, w.Allowed)

	w, err = store.Take(ctx, "rate_limit:unauth:short", 1, 300*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, w.Allowed)

	time.Sleep(500 * time.Millisecond)

	w, err = store.Take(ctx, "rate_limit:unauth:short", 1, 300*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, w.Allowed)
	assert.Equal(t, int64(1), w.Count)
}

func TestStore_Take_Concurrent(t *testing.T) {
	client := testutil.Redis(t)
	store := New(client)
	ctx := context.Background()

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := store.Take(ctx, "rate_limit:auth:alice:/urls/shorten", 20, time.Minute)
			assert.NoError(t, err)
			if w.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(20), admitted.Load())

	count, err := client.Get(ctx, "rate_limit:auth:alice:/urls/shorten").Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(20), count)

	ttl, err := client.PTTL(ctx, "rate_limit:auth:alice:/urls/shorten").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestStore_Ping(t *testing.T) {
	store := New(testutil.Redis(t))
	assert.NoError(t, store.Ping(context.Background()))
}
