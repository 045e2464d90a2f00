package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshdurbin/shortlink/internal/auth"
	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/logging"
	"github.com/joshdurbin/shortlink/internal/ratelimit"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

type claimsKey struct{}

func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims
}

// RequestID assigns every request an id, reusing a well-formed incoming one
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// LoggingMiddleware creates HTTP middleware for logging requests and responses
type LoggingMiddleware struct {
	logger  *slog.Logger
	verbose bool
}

// NewLoggingMiddleware creates a new logging middleware. Verbose also logs
// request bodies and error response bodies.
func NewLoggingMiddleware(logger *slog.Logger, verbose bool) *LoggingMiddleware {
	return &LoggingMiddleware{
		logger:  logger,
		verbose: verbose,
	}
}

// loggingResponseWriter wraps http.ResponseWriter to capture response details
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.body != nil {
		lrw.body.Write(b)
	}
	return lrw.ResponseWriter.Write(b)
}

// Middleware returns the HTTP logging middleware function
func (l *LoggingMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		if l.verbose {
			lrw.body = &bytes.Buffer{}
			if r.Method == http.MethodPost && r.Body != nil {
				bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
				if err != nil {
					l.logger.WarnContext(ctx, "failed to read request body", "error", err)
				}
				r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
				if len(bodyBytes) > 0 {
					l.logger.DebugContext(ctx, "request body", "body", string(bodyBytes))
				}
			}
		}

		next.ServeHTTP(lrw, r)

		l.logger.InfoContext(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", lrw.statusCode,
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
		if lrw.body != nil && lrw.body.Len() > 0 && lrw.statusCode >= 400 {
			l.logger.DebugContext(ctx, "error response body", "body", lrw.body.String())
		}
	})
}

type authFailureKey struct{}

// Authenticate resolves an optional bearer token into the caller identity.
// A bad token leaves the request anonymous and marks it for RejectBadToken,
// so the limiter still counts it against the caller's address.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || h.auth == nil {
			next.ServeHTTP(w, r)
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authFailureKey{}, auth.ErrInvalidToken)))
			return
		}

		claims, err := h.auth.Authenticate(r.Context(), strings.TrimSpace(raw))
		if err != nil {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authFailureKey{}, err)))
			return
		}

		ctx := auth.WithIdentity(r.Context(), claims.Identity())
		ctx = context.WithValue(ctx, claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RejectBadToken answers requests whose bearer token failed Authenticate
func (h *Handler) RejectBadToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err, ok := r.Context().Value(authFailureKey{}).(error); ok {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitMiddleware gates every request through the limiter
type RateLimitMiddleware struct {
	limiter    ratelimit.Limiter
	excluded   []string
	trustProxy bool
}

// NewRateLimitMiddleware creates the rate limiting middleware. Excluded paths
// bypass the limiter entirely.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, excluded []string, trustProxy bool) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter:    limiter,
		excluded:   excluded,
		trustProxy: trustProxy,
	}
}

// Middleware returns the HTTP rate limiting middleware function
func (m *RateLimitMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slices.Contains(m.excluded, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		scope, identity := ratelimit.ScopeAnonymous, clientIP(r, m.trustProxy)
		if id := auth.IdentityFrom(r.Context()); id != "" {
			scope, identity = ratelimit.ScopeAuthenticated, id
		}

		// a store error already went through the fail policy
		decision, _ := m.limiter.Admit(r.Context(), scope, identity, r.URL.Path)

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

		if !decision.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter/time.Second)))
			http.Error(w, domain.ErrRateLimited.Error()+": too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the caller's network origin. X-Forwarded-For is only
// honoured behind a trusted proxy.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
