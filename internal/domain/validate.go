package domain

import (
	"net/url"
	"strings"
)

// MaxURLLength bounds the long URLs accepted for shortening
const MaxURLLength = 2048

// ValidateLongURL checks that raw is an absolute http, https or ftp URL with a host
func ValidateLongURL(raw string) error {
	if raw == "" {
		return NewError(ErrInvalidInput, "URL is required")
	}
	if len(raw) > MaxURLLength {
		return NewError(ErrInvalidInput, "URL is too long")
	}
	if strings.ContainsAny(raw, " \t\r\n") {
		return NewError(ErrInvalidInput, "invalid URL format")
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return WrapError(ErrInvalidInput, "invalid URL format", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp":
	default:
		return NewError(ErrInvalidInput, "URL must use http, https or ftp")
	}

	if u.Host == "" || u.Hostname() == "" {
		return NewError(ErrInvalidInput, "URL must have a host")
	}

	return nil
}
