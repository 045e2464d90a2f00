package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/joshdurbin/shortlink/internal/auth"
	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/service"
)

const maxBodyBytes = 1 << 16

// HealthCheck reports whether a backing store is reachable
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler holds the HTTP handlers for the URL shortener
type Handler struct {
	shortener  service.URLShortener
	auth       *auth.Authenticator
	checks     []HealthCheck
	baseURL    string
	trustProxy bool
	logger     *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(shortener service.URLShortener, authenticator *auth.Authenticator, baseURL string, trustProxy bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		shortener:  shortener,
		auth:       authenticator,
		baseURL:    baseURL,
		trustProxy: trustProxy,
		logger:     logger,
	}
}

// AddHealthCheck registers a dependency probed by GET /healthz
func (h *Handler) AddHealthCheck(name string, check func(ctx context.Context) error) {
	h.checks = append(h.checks, HealthCheck{Name: name, Check: check})
}

// Redirect handles GET /{shortCode}
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := r.PathValue("shortCode")

	longURL, err := h.shortener.Resolve(r.Context(), shortCode, domain.Visit{
		Referrer:  r.Referer(),
		UserAgent: r.UserAgent(),
		Origin:    clientIP(r, h.trustProxy),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, longURL, http.StatusMovedPermanently)
}

// Shorten handles POST /urls/shorten
func (h *Handler) Shorten(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	var req domain.ShortenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "invalid JSON", err))
		return
	}

	link, err := h.shortener.Shorten(r.Context(), owner, req.LongURL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, link.ToResponse(h.baseURL))
}

// ListURLs handles GET /urls
func (h *Handler) ListURLs(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	links, err := h.shortener.ListURLs(r.Context(), owner)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]domain.LinkResponse, 0, len(links))
	for _, link := range links {
		resp = append(resp, link.ToResponse(h.baseURL))
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// GetURL handles GET /urls/{shortCode}
func (h *Handler) GetURL(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	link, err := h.shortener.GetURL(r.Context(), owner, r.PathValue("shortCode"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, link.ToResponse(h.baseURL))
}

// DeleteURL handles DELETE /urls/{shortCode}
func (h *Handler) DeleteURL(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.shortener.DeleteURL(r.Context(), owner, r.PathValue("shortCode")); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Analytics handles GET /urls/analytics/{shortCode}
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	result, err := h.shortener.Analytics(r.Context(), owner, r.PathValue("shortCode"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, result)
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil || h.auth == nil {
		h.writeError(w, r, auth.ErrInvalidToken)
		return
	}

	if err := h.auth.Revoke(r.Context(), claims); err != nil {
		h.writeError(w, r, domain.WrapError(domain.ErrStoreUnavailable, "failed to revoke token", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[c.Name] = err.Error()
			continue
		}
		checks[c.Name] = "ok"
	}

	body := map[string]any{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "unavailable"
	}
	h.writeJSON(w, r, status, body)
}

func (h *Handler) requireIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity := auth.IdentityFrom(r.Context())
	if identity == "" {
		h.writeError(w, r, auth.ErrInvalidToken)
		return "", false
	}
	return identity, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// writeError maps err onto a status code and a JSON error body
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		h.logger.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	h.writeJSON(w, r, status, domain.ErrorResponse{
		Status:    status,
		Message:   message,
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC(),
	})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.Message(err)
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, domain.Message(err)
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, domain.Message(err)
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "too many requests"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
