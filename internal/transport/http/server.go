package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshdurbin/shortlink/internal/auth"
	"github.com/joshdurbin/shortlink/internal/ratelimit"
	"github.com/joshdurbin/shortlink/internal/service"
)

// Options configures the HTTP server
type Options struct {
	Port          string
	BaseURL       string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	TrustProxy    bool
	Verbose       bool
	ExcludedPaths []string
}

// Server represents the HTTP server
type Server struct {
	handler *Handler
	server  *http.Server
	port    string
	logger  *slog.Logger
}

// NewServer creates a new HTTP server. A nil limiter disables rate limiting
// and a nil gatherer disables /metrics.
func NewServer(
	shortener service.URLShortener,
	authenticator *auth.Authenticator,
	limiter ratelimit.Limiter,
	gatherer prometheus.Gatherer,
	opts Options,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")
	handler := NewHandler(shortener, authenticator, opts.BaseURL, opts.TrustProxy, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /urls/shorten", handler.Shorten)
	mux.HandleFunc("GET /urls", handler.ListURLs)
	mux.HandleFunc("GET /urls/{shortCode}", handler.GetURL)
	mux.HandleFunc("DELETE /urls/{shortCode}", handler.DeleteURL)
	mux.HandleFunc("GET /urls/analytics/{shortCode}", handler.Analytics)
	mux.HandleFunc("POST /auth/logout", handler.Logout)
	mux.HandleFunc("GET /healthz", handler.Health)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// redirect endpoint
	mux.HandleFunc("GET /{shortCode}", handler.Redirect)

	// Wrap with middlewares, innermost first
	var finalHandler http.Handler = handler.RejectBadToken(mux)
	if limiter != nil {
		finalHandler = NewRateLimitMiddleware(limiter, opts.ExcludedPaths, opts.TrustProxy).Middleware(finalHandler)
	}
	finalHandler = handler.Authenticate(finalHandler)
	finalHandler = NewLoggingMiddleware(logger, opts.Verbose).Middleware(finalHandler)
	finalHandler = RequestID(finalHandler)

	server := &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      finalHandler,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}

	return &Server{
		handler: handler,
		server:  server,
		port:    opts.Port,
		logger:  logger,
	}
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("server starting", "port", s.port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

// Port returns the server port
func (s *Server) Port() string {
	return s.port
}

// Handler returns the route handlers, used to register health checks
func (s *Server) Handler() *Handler {
	return s.handler
}

// HTTPHandler returns the fully wrapped router (useful for testing)
func (s *Server) HTTPHandler() http.Handler {
	return s.server.Handler
}
