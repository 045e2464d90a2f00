package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// ErrNotFound is returned when the server answers 404
var ErrNotFound = errors.New("not found")

// APIError is a non-success response from the server
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client represents an HTTP client for the URL shortener API
type Client struct {
	serverURL  string
	token      string
	httpClient *http.Client
}

// NewClient creates a new URL shortener client. token may be empty for anonymous calls.
func NewClient(serverURL, token string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		token:     token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Shorten creates a short URL, or returns the existing one for the same long URL
func (c *Client) Shorten(ctx context.Context, longURL string) (*domain.LinkResponse, error) {
	var result domain.LinkResponse
	if err := c.do(ctx, http.MethodPost, "/urls/shorten", domain.ShortenRequest{LongURL: longURL}, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetURL retrieves information about one of the caller's short URLs
func (c *Client) GetURL(ctx context.Context, shortCode string) (*domain.LinkResponse, error) {
	var result domain.LinkResponse
	if err := c.do(ctx, http.MethodGet, "/urls/"+url.PathEscape(shortCode), nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListURLs retrieves the caller's short URLs
func (c *Client) ListURLs(ctx context.Context) ([]domain.LinkResponse, error) {
	var result []domain.LinkResponse
	if err := c.do(ctx, http.MethodGet, "/urls", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteURL deletes one of the caller's short URLs
func (c *Client) DeleteURL(ctx context.Context, shortCode string) error {
	return c.do(ctx, http.MethodDelete, "/urls/"+url.PathEscape(shortCode), nil, http.StatusNoContent, nil)
}

// Analytics retrieves the click analytics of one of the caller's short URLs
func (c *Client) Analytics(ctx context.Context, shortCode string) (*domain.Analytics, error) {
	var result domain.Analytics
	if err := c.do(ctx, http.MethodGet, "/urls/analytics/"+url.PathEscape(shortCode), nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Resolve returns the redirect target of a short code without following it
func (c *Client) Resolve(ctx context.Context, shortCode string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/"+url.PathEscape(shortCode), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMovedPermanently && resp.StatusCode != http.StatusFound {
		return "", apiError(resp)
	}
	return resp.Header.Get("Location"), nil
}

// Logout revokes the client's token
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, http.StatusNoContent, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// apiError reads the JSON error body when there is one, or the plain text body of a 429
func apiError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RetryAfter: resp.Header.Get("Retry-After"),
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body domain.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		apiErr.Message = body.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
