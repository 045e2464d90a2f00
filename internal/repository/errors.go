package repository

import (
	"errors"
	"fmt"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// StoreError wraps a driver failure as domain.ErrStoreUnavailable
func StoreError(op string, err error) error {
	return fmt.Errorf("failed to %s: %w", op, domain.WrapError(domain.ErrStoreUnavailable, "database unavailable", err))
}

// NotFound returns a domain.ErrNotFound error for a short code
func NotFound(shortCode string) error {
	return domain.NewError(domain.ErrNotFound, fmt.Sprintf("short code %q not found", shortCode))
}

// IsConflict reports whether err is one of the unique constraint conflicts
func IsConflict(err error) bool {
	return errors.Is(err, domain.ErrCodeTaken) || errors.Is(err, domain.ErrLinkExists)
}
