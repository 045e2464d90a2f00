package client

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/shortlink/internal/domain"
)

func newTestCommands(t *testing.T, handler http.HandlerFunc) (*Commands, *bytes.Buffer) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var out bytes.Buffer
	return NewCommands(NewClient(server.URL, "t"), &out), &out
}

func TestCommands_Shorten(t *testing.T) {
	commands, out := newTestCommands(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, testLink())
	})

	require.NoError(t, commands.Shorten(context.Background(), "https://example.com"))

	output := out.String()
	assert.Contains(t, output, "Short URL created:")
	assert.Contains(t, output, "Short Code: abc123")
	assert.Contains(t, output, "Short URL: http://sho.rt/abc123")
	assert.Contains(t, output, "Long URL: https://example.com")
	assert.Contains(t, output, "Created At: 2024-01-01T12:00:00Z")
}

func TestCommands_Get(t *testing.T) {
	commands, out := newTestCommands(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/urls/abc123" {
			writeJSON(w, http.StatusOK, testLink())
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	require.NoError(t, commands.Get(context.Background(), "abc123"))
	assert.Contains(t, out.String(), "Clicks: 7")

	out.Reset()
	require.NoError(t, commands.Get(context.Background(), "zzz999"))
	assert.Equal(t, "Short code 'zzz999' not found\n", out.String())
}

func TestCommands_Delete(t *testing.T) {
	commands, out := newTestCommands(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/urls/abc123":
			w.WriteHeader(http.StatusNoContent)
		case "/urls/other1":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	require.NoError(t, commands.Delete(context.Background(), "abc123"))
	assert.Equal(t, "Short URL 'abc123' deleted successfully\n", out.String())

	out.Reset()
	require.NoError(t, commands.Delete(context.Background(), "zzz999"))
	assert.Contains(t, out.String(), "not found")

	assert.Error(t, commands.Delete(context.Background(), "other1"))
}

func TestCommands_List(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		long := testLink()
		long.ShortCode = "long01"
		long.LongURL = "https://example.com/" + strings.Repeat("a", 80)

		commands, out := newTestCommands(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []domain.LinkResponse{testLink(), long})
		})

		require.NoError(t, commands.List(context.Background()))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 4)
		assert.Contains(t, lines[0], "Short Code")
		assert.Contains(t, lines[2], "abc123")
		assert.Contains(t, lines[3], "...")
	})

	t.Run("empty", func(t *testing.T) {
		commands, out := newTestCommands(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []domain.LinkResponse{})
		})

		require.NoError(t, commands.List(context.Background()))
		assert.Equal(t, "No URLs found\n", out.String())
	})
}

func TestCommands_Analytics(t *testing.T) {
	commands, out := newTestCommands(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.Analytics{
			ShortCode:      "abc123",
			ShortURL:       "http://sho.rt/abc123",
			LongURL:        "https://example.com",
			TotalClicks:    5,
			ClicksByDay:    map[string]int64{"2024-01-02": 2, "2024-01-01": 3},
			ReferrerCounts: map[string]int64{"google.com": 1, "news.example.org": 4},
			BrowserCounts:  map[string]int64{"Firefox": 5},
		})
	})

	require.NoError(t, commands.Analytics(context.Background(), "abc123"))

	output := out.String()
	assert.Contains(t, output, "Total Clicks: 5")
	assert.Less(t, strings.Index(output, "2024-01-01"), strings.Index(output, "2024-01-02"))
	assert.Less(t, strings.Index(output, "news.example.org"), strings.Index(output, "google.com"))
	assert.Contains(t, output, "Firefox")
}

func TestCommands_Logout(t *testing.T) {
	commands, out := newTestCommands(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, commands.Logout(context.Background()))
	assert.Equal(t, "Logged out\n", out.String())
}
