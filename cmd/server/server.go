package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/joshdurbin/shortlink/internal/analytics"
	"github.com/joshdurbin/shortlink/internal/auth"
	"github.com/joshdurbin/shortlink/internal/cache"
	cachememory "github.com/joshdurbin/shortlink/internal/cache/memory"
	"github.com/joshdurbin/shortlink/internal/config"
	"github.com/joshdurbin/shortlink/internal/logging"
	"github.com/joshdurbin/shortlink/internal/metrics"
	"github.com/joshdurbin/shortlink/internal/ratelimit"
	limitmemory "github.com/joshdurbin/shortlink/internal/ratelimit/memory"
	limitredis "github.com/joshdurbin/shortlink/internal/ratelimit/redis"
	"github.com/joshdurbin/shortlink/internal/repository"
	"github.com/joshdurbin/shortlink/internal/repository/postgres"
	"github.com/joshdurbin/shortlink/internal/repository/sqlite"
	"github.com/joshdurbin/shortlink/internal/service"
	"github.com/joshdurbin/shortlink/internal/shortener"
	httpTransport "github.com/joshdurbin/shortlink/internal/transport/http"
)

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close repository", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Shared counter store and revocation list
	var (
		counters    ratelimit.CounterStore
		revocations auth.Revocations
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup", "addr", cfg.Redis.Addr, "fail_policy", cfg.RateLimit.FailPolicy, "error", err)
		}
		counters = limitredis.New(rdb)
		revocations = auth.NewRedisRevocations(rdb)
		logger.Info("using redis counter store", "addr", cfg.Redis.Addr)
	} else {
		counters = limitmemory.New()
		revocations = auth.NewMemoryRevocations()
		logger.Info("using in-process counter store")
	}

	limiter, err := ratelimit.NewFixedWindow(counters, cfg.RateLimit, m, logger)
	if err != nil {
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}

	var lookupCache cache.Cache = cachememory.Nop{}
	if cfg.Cache.TTL > 0 {
		lookupCache = cachememory.New(cfg.Cache.TTL)
	}
	defer lookupCache.Close()

	var publisher analytics.Publisher = analytics.NopPublisher{}
	if cfg.Events.NATSURL != "" {
		natsPublisher, err := analytics.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			return err
		}
		publisher = natsPublisher
		logger.Info("publishing click events", "subject", cfg.Events.Subject)
	}
	defer publisher.Close()

	generator, err := shortener.NewGenerator(cfg.Shortener)
	if err != nil {
		return fmt.Errorf("failed to create shortener generator: %w", err)
	}
	allocator := shortener.NewAllocator(generator, repo, cfg.Shortener)
	allocator.OnRetry(m.AllocationRetries.Inc)
	logger.Info("using short code generator", "type", generator.Type(), "length", cfg.Shortener.Length)

	urlShortener := service.NewURLShortener(service.Dependencies{
		Repo:      repo,
		Allocator: allocator,
		Cache:     lookupCache,
		Directory: auth.NewStaticDirectory(cfg.Auth.Users),
		Publisher: publisher,
		Metrics:   m,
		Logger:    logger,
		BaseURL:   cfg.Server.BaseURL,
	})
	authenticator := auth.NewAuthenticator(auth.NewTokenManager(cfg.Auth), revocations)

	// Create and start HTTP server
	server := httpTransport.NewServer(urlShortener, authenticator, limiter, reg, httpTransport.Options{
		Port:          cfg.Server.Port,
		BaseURL:       cfg.Server.BaseURL,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
		TrustProxy:    cfg.Server.TrustProxy,
		Verbose:       cfg.Logging.Verbose,
		ExcludedPaths: cfg.RateLimit.ExcludedPaths,
	}, logger)
	server.Handler().AddHealthCheck("database", repo.Ping)
	server.Handler().AddHealthCheck("counter_store", counters.Ping)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Repository, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		logger.Info("using postgres storage")
		return postgres.New(ctx, postgres.Config{
			DSN:      cfg.Database.DSN,
			MaxConns: cfg.Database.MaxConns,
		}, logger)
	default:
		logger.Info("using sqlite storage", "path", cfg.Database.Path)
		return sqlite.New(cfg.Database.Path)
	}
}
