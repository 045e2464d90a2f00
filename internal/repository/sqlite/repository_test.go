package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/shortlink/internal/domain"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "shortlink.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, repo.Close())
	})
	return repo
}

func newLink(code, owner, longURL string, createdAt time.Time) *domain.ShortLink {
	return &domain.ShortLink{
		ID:        uuid.NewString(),
		ShortCode: code,
		Owner:     owner,
		LongURL:   longURL,
		CreatedAt: createdAt,
	}
}

func TestRepository_New(t *testing.T) {
	repo := setupTestRepo(t)
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestRepository_New_InvalidPath(t *testing.T) {
	repo, err := New("/invalid/path/to/database.db")
	assert.Error(t, err)
	assert.Nil(t, repo)
}

func TestRepository_New_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortlink.db")
	repo, err := New(path)
	require.NoError(t, err)
	require.NoError(t, repo.CreateLink(context.Background(), newLink("abc123", "alice", "https://example.com", time.Now())))
	require.NoError(t, repo.Close())

	// migrations are already applied, data survives
	repo, err = New(path)
	require.NoError(t, err)
	defer repo.Close()
	_, err = repo.GetLink(context.Background(), "abc123")
	assert.NoError(t, err)
}

func TestRepository_CreateAndGetLink(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	createdAt := time.Now().UTC()

	link := newLink("abc123", "alice", "https://example.com", createdAt)
	require.NoError(t, repo.CreateLink(ctx, link))

	got, err := repo.GetLink(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)
	assert.Equal(t, "alice", got.Owner)
	assert.Equal(t, "https://example.com", got.LongURL)
	assert.Equal(t, int64(0), got.ClickCount)
	assert.WithinDuration(t, createdAt, got.CreatedAt, time.Second)
}

func TestRepository_CreateLink_Conflicts(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.CreateLink(ctx, newLink("abc123", "alice", "https://example.com", now)))

	err := repo.CreateLink(ctx, newLink("abc123", "bob", "https://other.com", now))
	assert.ErrorIs(t, err, domain.ErrCodeTaken)

	err = repo.CreateLink(ctx, newLink("xyz789", "alice", "https://example.com", now))
	assert.ErrorIs(t, err, domain.ErrLinkExists)

	// a different owner may shorten the same URL
	assert.NoError(t, repo.CreateLink(ctx, newLink("xyz789", "bob", "https://example.com", now)))
}

func TestRepository_GetLink_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.GetLink(context.Background(), "zzz999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_FindByOwnerAndURL(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateLink(ctx, newLink("abc123", "alice", "https://example.com", time.Now())))

	got, err := repo.FindByOwnerAndURL(ctx, "alice", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.ShortCode)

	_, err = repo.FindByOwnerAndURL(ctx, "bob", "https://example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_ListByOwner(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	links, err := repo.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, links, 0)

	require.NoError(t, repo.CreateLink(ctx, newLink("code01", "alice", "https://one.example", now.Add(-2*time.Hour))))
	require.NoError(t, repo.CreateLink(ctx, newLink("code02", "alice", "https://two.example", now.Add(-time.Hour))))
	require.NoError(t, repo.CreateLink(ctx, newLink("code03", "bob", "https://three.example", now)))

	links, err = repo.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "code02", links[0].ShortCode)
	assert.Equal(t, "code01", links[1].ShortCode)
}

func TestRepository_IncrementClicks_Concurrent(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateLink(ctx, newLink("abc123", "alice", "https://example.com", time.Now())))

	const visitors = 50
	var wg sync.WaitGroup
	for i := 0; i < visitors; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.IncrementClicks(ctx, "abc123"))
		}()
	}
	wg.Wait()

	got, err := repo.GetLink(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(visitors), got.ClickCount)
}

func TestRepository_IncrementClicks_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.IncrementClicks(context.Background(), "zzz999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_DeleteLink_KeepsCodeReserved(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateLink(ctx, newLink("abc123", "alice", "https://example.com", time.Now())))

	require.NoError(t, repo.DeleteLink(ctx, "abc123"))

	_, err := repo.GetLink(ctx, "abc123")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.IncrementClicks(ctx, "abc123"), domain.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteLink(ctx, "abc123"), domain.ErrNotFound)

	exists, err := repo.CodeExists(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.ErrorIs(t, repo.CreateLink(ctx, newLink("abc123", "bob", "https://other.com", time.Now())), domain.ErrCodeTaken)

	// the owner may shorten the URL again under a new code
	assert.NoError(t, repo.CreateLink(ctx, newLink("new456", "alice", "https://example.com", time.Now())))
}

func TestRepository_CodeExists(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	exists, err := repo.CodeExists(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.CreateLink(ctx, newLink("abc123", "alice", "https://example.com", time.Now())))

	exists, err = repo.CodeExists(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRepository_Clicks(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateLink(ctx, newLink("abc123", "alice", "https://example.com", time.Now())))

	first := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.AppendClick(ctx, &domain.ClickEvent{
		ID: uuid.NewString(), ShortCode: "abc123", Referrer: "https://news.example.com/a",
		UserAgent: "Mozilla/5.0 Firefox/120.0", Origin: "10.0.0.1", OccurredAt: first,
	}))
	require.NoError(t, repo.AppendClick(ctx, &domain.ClickEvent{
		ID: uuid.NewString(), ShortCode: "abc123", OccurredAt: first.Add(30 * time.Second),
	}))

	events, err := repo.ListClicks(ctx, "abc123")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "https://news.example.com/a", events[0].Referrer)
	assert.Equal(t, "10.0.0.1", events[0].Origin)
	assert.Empty(t, events[1].Referrer)
	assert.Empty(t, events[1].UserAgent)
	assert.WithinDuration(t, first, events[0].OccurredAt, time.Second)
}

func TestRepository_AppendClick_UnknownLink(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.AppendClick(context.Background(), &domain.ClickEvent{
		ID: uuid.NewString(), ShortCode: "zzz999", OccurredAt: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_CancelledContext(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.CreateLink(context.Background(), newLink("abc123", "alice", "https://example.com", time.Now())))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.IncrementClicks(ctx, "abc123")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	got, err := repo.GetLink(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.ClickCount)
}
