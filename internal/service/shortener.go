package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshdurbin/shortlink/internal/analytics"
	"github.com/joshdurbin/shortlink/internal/auth"
	"github.com/joshdurbin/shortlink/internal/cache"
	"github.com/joshdurbin/shortlink/internal/cache/memory"
	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/metrics"
	"github.com/joshdurbin/shortlink/internal/repository"
	"github.com/joshdurbin/shortlink/internal/shortener"
)

const defaultClickWriteTimeout = 5 * time.Second

// Dependencies are the collaborators of the URL shortener service.
// Only Repo and Allocator are required.
type Dependencies struct {
	Repo      repository.Repository
	Allocator *shortener.Allocator
	Cache     cache.Cache
	Directory auth.Directory
	Publisher analytics.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	BaseURL   string

	// ClickWriteTimeout bounds the click writes once a redirect is being counted
	ClickWriteTimeout time.Duration
}

// urlShortener implements URLShortener interface
type urlShortener struct {
	repo              repository.Repository
	allocator         *shortener.Allocator
	cache             cache.Cache
	directory         auth.Directory
	publisher         analytics.Publisher
	metrics           *metrics.Metrics
	logger            *slog.Logger
	baseURL           string
	clickWriteTimeout time.Duration
	now               func() time.Time
}

// NewURLShortener creates a new URL shortener service
func NewURLShortener(deps Dependencies) URLShortener {
	s := &urlShortener{
		repo:              deps.Repo,
		allocator:         deps.Allocator,
		cache:             deps.Cache,
		directory:         deps.Directory,
		publisher:         deps.Publisher,
		metrics:           deps.Metrics,
		logger:            deps.Logger,
		baseURL:           deps.BaseURL,
		clickWriteTimeout: deps.ClickWriteTimeout,
		now:               time.Now,
	}

	if s.cache == nil {
		s.cache = memory.Nop{}
	}
	if s.directory == nil {
		s.directory = auth.NewStaticDirectory(nil)
	}
	if s.publisher == nil {
		s.publisher = analytics.NopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.clickWriteTimeout <= 0 {
		s.clickWriteTimeout = defaultClickWriteTimeout
	}
	s.logger = s.logger.With("component", "service")

	return s
}

// Shorten creates a short link, or returns the existing one for the same owner and URL
func (s *urlShortener) Shorten(ctx context.Context, owner, longURL string) (*domain.ShortLink, error) {
	longURL = strings.TrimSpace(longURL)
	if err := domain.ValidateLongURL(longURL); err != nil {
		return nil, err
	}
	if err := s.checkUser(ctx, owner); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByOwnerAndURL(ctx, owner, longURL)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up existing link: %w", err)
	}

	link := &domain.ShortLink{
		ID:        uuid.NewString(),
		Owner:     owner,
		LongURL:   longURL,
		CreatedAt: s.now().UTC(),
	}

	_, err = s.allocator.Reserve(ctx, func(ctx context.Context, code string) error {
		link.ShortCode = code
		return s.repo.CreateLink(ctx, link)
	})
	if errors.Is(err, domain.ErrLinkExists) {
		// a concurrent request for the same owner and URL won the insert
		existing, err := s.repo.FindByOwnerAndURL(ctx, owner, longURL)
		if err != nil {
			return nil, fmt.Errorf("failed to load concurrently created link: %w", err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create short link: %w", err)
	}

	s.metrics.LinksCreated.Inc()
	_ = s.cache.Set(ctx, link.ShortCode, &cache.Entry{LinkID: link.ID, Owner: owner, LongURL: longURL})
	s.logger.InfoContext(ctx, "short link created", "short_code", link.ShortCode)

	return link, nil
}

// GetURL returns a link owned by owner
func (s *urlShortener) GetURL(ctx context.Context, owner, shortCode string) (*domain.ShortLink, error) {
	return s.ownedLink(ctx, owner, shortCode, "access")
}

// ListURLs returns the owner's live links, newest first
func (s *urlShortener) ListURLs(ctx context.Context, owner string) ([]*domain.ShortLink, error) {
	if err := s.checkUser(ctx, owner); err != nil {
		return nil, err
	}

	links, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// DeleteURL deletes a link owned by owner
func (s *urlShortener) DeleteURL(ctx context.Context, owner, shortCode string) error {
	if _, err := s.ownedLink(ctx, owner, shortCode, "delete"); err != nil {
		return err
	}

	if err := s.repo.DeleteLink(ctx, shortCode); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	_ = s.cache.Delete(ctx, shortCode)

	s.logger.InfoContext(ctx, "short link deleted", "short_code", shortCode)
	return nil
}

// Analytics aggregates the click events of a link owned by owner
func (s *urlShortener) Analytics(ctx context.Context, owner, shortCode string) (*domain.Analytics, error) {
	link, err := s.ownedLink(ctx, owner, shortCode, "view analytics for")
	if err != nil {
		return nil, err
	}

	events, err := s.repo.ListClicks(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load click events: %w", err)
	}

	return analytics.Aggregate(link, events, s.baseURL), nil
}

// ownedLink loads a link and checks owner may act on it
func (s *urlShortener) ownedLink(ctx context.Context, owner, shortCode, action string) (*domain.ShortLink, error) {
	link, err := s.repo.GetLink(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	if err := s.checkUser(ctx, owner); err != nil {
		return nil, err
	}
	if link.Owner != owner {
		return nil, domain.NewError(domain.ErrUnauthorized,
			fmt.Sprintf("you don't have permission to %s this URL", action))
	}
	return link, nil
}

// checkUser resolves owner through the user directory
func (s *urlShortener) checkUser(ctx context.Context, owner string) error {
	if owner == "" {
		return domain.NewError(domain.ErrUnauthorized, "authentication required")
	}

	ok, err := s.directory.Exists(ctx, owner)
	if err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "user directory unavailable", err)
	}
	if !ok {
		return domain.NewError(domain.ErrNotFound, "user not found")
	}
	return nil
}
