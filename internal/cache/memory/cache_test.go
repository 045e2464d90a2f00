package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/shortlink/internal/cache"
)

func TestCache_SetGetDelete(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	_, ok := c.Get(ctx, "abc123")
	assert.False(t, ok)

	entry := &cache.Entry{LinkID: "id-1", Owner: "alice", LongURL: "https://example.com"}
	require.NoError(t, c.Set(ctx, "abc123", entry))

	got, ok := c.Get(ctx, "abc123")
	require.True(t, ok)
	assert.Equal(t, *entry, *got)

	// the cache hands out copies
	got.LongURL = "https://changed.example"
	again, _ := c.Get(ctx, "abc123")
	assert.Equal(t, "https://example.com", again.LongURL)

	require.NoError(t, c.Delete(ctx, "abc123"))
	_, ok = c.Get(ctx, "abc123")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c := New(50 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "abc123", &cache.Entry{LongURL: "https://example.com"}))
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get(ctx, "abc123")
	assert.False(t, ok)
}

func TestCache_Close(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", &cache.Entry{}))
	require.NoError(t, c.Set(ctx, "b", &cache.Entry{}))
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, "hot", &cache.Entry{LongURL: "https://example.com"})
			if e, ok := c.Get(ctx, "hot"); ok {
				assert.Equal(t, "https://example.com", e.LongURL)
			}
		}()
	}
	wg.Wait()
}

func TestNop(t *testing.T) {
	var c cache.Cache = Nop{}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "abc123", &cache.Entry{}))
	_, ok := c.Get(ctx, "abc123")
	assert.False(t, ok)
	assert.NoError(t, c.Delete(ctx, "abc123"))
	assert.NoError(t, c.Close())
}
