package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/shortlink/internal/auth"
	cachememory "github.com/joshdurbin/shortlink/internal/cache/memory"
	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/metrics"
	"github.com/joshdurbin/shortlink/internal/ratelimit"
	limitmemory "github.com/joshdurbin/shortlink/internal/ratelimit/memory"
	"github.com/joshdurbin/shortlink/internal/repository/sqlite"
	"github.com/joshdurbin/shortlink/internal/service"
	"github.com/joshdurbin/shortlink/internal/shortener"
)

type testStack struct {
	server *httptest.Server
	tokens *auth.TokenManager
	client *http.Client
}

func newTestStack(t *testing.T, anonymousCapacity int64) *testStack {
	t.Helper()

	repo, err := sqlite.New(filepath.Join(t.TempDir(), "shortlink.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	limitConfig := ratelimit.DefaultConfig()
	limitConfig.Anonymous = ratelimit.ScopeLimit{Capacity: anonymousCapacity, Window: time.Minute}
	counters := limitmemory.New()
	limiter, err := ratelimit.NewFixedWindow(counters, limitConfig, m, testLogger)
	require.NoError(t, err)

	authenticator, tokens := testAuth()

	svc := service.NewURLShortener(service.Dependencies{
		Repo:      repo,
		Allocator: shortener.NewAllocator(shortener.NewRandomGenerator(), repo, shortener.DefaultConfig()),
		Cache:     cachememory.New(time.Minute),
		Metrics:   m,
		Logger:    testLogger,
		BaseURL:   testBaseURL,
	})

	srv := NewServer(svc, authenticator, limiter, reg, Options{
		BaseURL:       testBaseURL,
		ExcludedPaths: limitConfig.ExcludedPaths,
	}, testLogger)
	srv.Handler().AddHealthCheck("database", repo.Ping)
	srv.Handler().AddHealthCheck("counter_store", counters.Ping)

	ts := httptest.NewServer(srv.HTTPHandler())
	t.Cleanup(ts.Close)

	return &testStack{
		server: ts,
		tokens: tokens,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (s *testStack) do(t *testing.T, method, path, identity string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "Mozilla/5.0 Firefox/121.0")
	if identity != "" {
		req.Header.Set("Authorization", bearer(t, s.tokens, identity))
	}

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestIntegration_FullWorkflow(t *testing.T) {
	stack := newTestStack(t, 100)
	longURL := "https://example.com/very/long/path/to/resource"

	// shorten
	resp := stack.do(t, http.MethodPost, "/urls/shorten", "alice", domain.ShortenRequest{LongURL: longURL})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[domain.LinkResponse](t, resp)
	assert.Len(t, created.ShortCode, 6)
	assert.Equal(t, testBaseURL+"/"+created.ShortCode, created.ShortURL)
	assert.Equal(t, longURL, created.LongURL)
	assert.Zero(t, created.Clicks)

	// shortening the same URL again returns the same link
	resp = stack.do(t, http.MethodPost, "/urls/shorten", "alice", domain.ShortenRequest{LongURL: longURL})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, created.ShortCode, decodeJSON[domain.LinkResponse](t, resp).ShortCode)

	// invalid URL
	resp = stack.do(t, http.MethodPost, "/urls/shorten", "alice", domain.ShortenRequest{LongURL: "ftp//broken"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// redirect
	for i := 0; i < 3; i++ {
		resp = stack.do(t, http.MethodGet, "/"+created.ShortCode, "", nil)
		require.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
		assert.Equal(t, longURL, resp.Header.Get("Location"))
	}

	// owner view
	resp = stack.do(t, http.MethodGet, "/urls/"+created.ShortCode, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(3), decodeJSON[domain.LinkResponse](t, resp).Clicks)

	resp = stack.do(t, http.MethodGet, "/urls", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeJSON[[]domain.LinkResponse](t, resp), 1)

	// analytics
	resp = stack.do(t, http.MethodGet, "/urls/analytics/"+created.ShortCode, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decodeJSON[domain.Analytics](t, resp)
	assert.Equal(t, int64(3), stats.TotalClicks)
	assert.Equal(t, int64(3), stats.BrowserCounts["Firefox"])
	assert.Equal(t, int64(3), stats.ClicksByDay[time.Now().UTC().Format("2006-01-02")])

	// another user can neither read nor delete it
	resp = stack.do(t, http.MethodGet, "/urls/"+created.ShortCode, "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = stack.do(t, http.MethodDelete, "/urls/"+created.ShortCode, "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = stack.do(t, http.MethodGet, "/urls/analytics/"+created.ShortCode, "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// delete
	resp = stack.do(t, http.MethodDelete, "/urls/"+created.ShortCode, "alice", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = stack.do(t, http.MethodGet, "/"+created.ShortCode, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = stack.do(t, http.MethodDelete, "/urls/"+created.ShortCode, "alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_UnknownCode(t *testing.T) {
	stack := newTestStack(t, 100)

	resp := stack.do(t, http.MethodGet, "/zzz999", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"))

	errResp := decodeJSON[domain.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusNotFound, errResp.Status)
	assert.Equal(t, "/zzz999", errResp.Path)
}

func TestIntegration_AnonymousRateLimit(t *testing.T) {
	stack := newTestStack(t, 3)

	for i := 0; i < 3; i++ {
		resp := stack.do(t, http.MethodGet, "/zzz999", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	// the anonymous budget covers every endpoint
	resp := stack.do(t, http.MethodGet, "/other1", "", nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)
	assert.LessOrEqual(t, retryAfter, 60)

	// authenticated callers have their own budget
	resp = stack.do(t, http.MethodGet, "/urls", "alice", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// health and metrics are never limited
	resp = stack.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = stack.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), `shortlink_ratelimit_decisions_total{outcome="denied",scope="anonymous"} 1`)
}

func TestIntegration_BadTokensShareAnonymousBudget(t *testing.T) {
	stack := newTestStack(t, 2)

	send := func(header string) int {
		req, err := http.NewRequest(http.MethodGet, stack.server.URL+"/urls", nil)
		require.NoError(t, err)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := stack.client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, send("Bearer garbage"))
	assert.Equal(t, http.StatusUnauthorized, send("Bearer garbage"))
	assert.Equal(t, http.StatusTooManyRequests, send("Bearer garbage"))

	// the same origin without a token is out of budget too
	assert.Equal(t, http.StatusTooManyRequests, send(""))
}

func TestIntegration_Logout(t *testing.T) {
	stack := newTestStack(t, 100)
	token := bearer(t, stack.tokens, "alice")

	send := func(method, path string) int {
		req, err := http.NewRequest(method, stack.server.URL+path, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", token)
		resp, err := stack.client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/urls"))
	assert.Equal(t, http.StatusNoContent, send(http.MethodPost, "/auth/logout"))
	assert.Equal(t, http.StatusUnauthorized, send(http.MethodGet, "/urls"))
}
