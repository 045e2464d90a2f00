package domain

import (
	"time"
)

// ShortLink maps a short code to the long URL it redirects to
type ShortLink struct {
	ID         string    `json:"id"`
	ShortCode  string    `json:"shortCode"`
	Owner      string    `json:"owner"`
	LongURL    string    `json:"longUrl"`
	ClickCount int64     `json:"clicks"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ClickEvent is a single recorded visit to a short link
type ClickEvent struct {
	ID         string    `json:"id"`
	ShortCode  string    `json:"shortCode"`
	Referrer   string    `json:"referrer,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	Origin     string    `json:"origin,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Visit carries the request context forwarded into a redirect
type Visit struct {
	Referrer  string
	UserAgent string
	Origin    string
}

// ShortenRequest is the body of POST /urls/shorten
type ShortenRequest struct {
	LongURL string `json:"longUrl"`
}

// LinkResponse is the public representation of a ShortLink
type LinkResponse struct {
	ID        string    `json:"id"`
	ShortCode string    `json:"shortCode"`
	ShortURL  string    `json:"shortUrl"`
	LongURL   string    `json:"longUrl"`
	CreatedAt time.Time `json:"createdAt"`
	Clicks    int64     `json:"clicks"`
}

// Analytics is the aggregated view of a link's click events
type Analytics struct {
	URLID          string           `json:"urlId"`
	ShortCode      string           `json:"shortCode"`
	ShortURL       string           `json:"shortUrl"`
	LongURL        string           `json:"longUrl"`
	TotalClicks    int64            `json:"totalClicks"`
	ClicksByDay    map[string]int64 `json:"clicksByDay"`
	ReferrerCounts map[string]int64 `json:"referrerCounts"`
	BrowserCounts  map[string]int64 `json:"browserCounts"`
}

// ErrorResponse is the JSON body written for failed API requests
type ErrorResponse struct {
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// ToResponse builds the public view of a link using baseURL as the short domain
func (l *ShortLink) ToResponse(baseURL string) LinkResponse {
	return LinkResponse{
		ID:        l.ID,
		ShortCode: l.ShortCode,
		ShortURL:  ShortURL(baseURL, l.ShortCode),
		LongURL:   l.LongURL,
		CreatedAt: l.CreatedAt,
		Clicks:    l.ClickCount,
	}
}

// ShortURL joins the short domain and a code
func ShortURL(baseURL, shortCode string) string {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return baseURL + "/" + shortCode
}
