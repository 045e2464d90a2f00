package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/joshdurbin/shortlink/internal/cache"
	"github.com/joshdurbin/shortlink/internal/domain"
)

// Resolve returns the long URL for shortCode and records the click.
// The click count increment is the commit point: if it fails the redirect
// fails and no event is written. Once counted, a failed event append or
// publish is logged and counted but does not fail the redirect.
func (s *urlShortener) Resolve(ctx context.Context, shortCode string, visit domain.Visit) (string, error) {
	entry, err := s.lookup(ctx, shortCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.metrics.Redirects.WithLabelValues("not_found").Inc()
		} else {
			s.metrics.Redirects.WithLabelValues("error").Inc()
		}
		return "", err
	}

	// a caller that already gave up is not counted
	if err := ctx.Err(); err != nil {
		s.metrics.Redirects.WithLabelValues("cancelled").Inc()
		return "", err
	}

	if err := s.repo.IncrementClicks(ctx, shortCode); err != nil {
		return "", s.incrementFailed(ctx, shortCode, err)
	}

	// the visit is counted from here on, finish the event write even if the caller leaves
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.clickWriteTimeout)
	defer cancel()

	event := &domain.ClickEvent{
		ID:         uuid.NewString(),
		ShortCode:  shortCode,
		Referrer:   visit.Referrer,
		UserAgent:  visit.UserAgent,
		Origin:     visit.Origin,
		OccurredAt: s.now().UTC(),
	}
	if err := s.repo.AppendClick(writeCtx, event); err != nil {
		s.clickWriteFailed(ctx, "append", shortCode, err)
	} else if err := s.publisher.Publish(writeCtx, event); err != nil {
		s.clickWriteFailed(ctx, "publish", shortCode, err)
	}

	s.metrics.Redirects.WithLabelValues("found").Inc()
	return entry.LongURL, nil
}

// lookup serves the redirect target from cache, falling back to the repository
func (s *urlShortener) lookup(ctx context.Context, shortCode string) (*cache.Entry, error) {
	if entry, ok := s.cache.Get(ctx, shortCode); ok {
		return entry, nil
	}

	link, err := s.repo.GetLink(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", shortCode, err)
	}

	entry := &cache.Entry{LinkID: link.ID, Owner: link.Owner, LongURL: link.LongURL}
	_ = s.cache.Set(ctx, shortCode, entry)
	return entry, nil
}

// incrementFailed classifies a failed click count increment
func (s *urlShortener) incrementFailed(ctx context.Context, shortCode string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// deleted after it was cached
		_ = s.cache.Delete(ctx, shortCode)
		s.metrics.Redirects.WithLabelValues("not_found").Inc()
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.metrics.Redirects.WithLabelValues("cancelled").Inc()
		return err
	}

	s.clickWriteFailed(ctx, "increment", shortCode, err)
	s.metrics.Redirects.WithLabelValues("error").Inc()
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return domain.WrapError(domain.ErrStoreUnavailable, "failed to record click", err)
}

func (s *urlShortener) clickWriteFailed(ctx context.Context, stage, shortCode string, err error) {
	s.metrics.ClickWriteFailures.WithLabelValues(stage).Inc()
	s.logger.WarnContext(ctx, "click write failed",
		"stage", stage,
		"short_code", shortCode,
		"error", err,
	)
}
