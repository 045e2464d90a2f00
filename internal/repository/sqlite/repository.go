package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/repository"
)

const linkColumns = `id, short_code, owner, long_url, clicks, created_at`

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New opens the database at path and applies migrations
func New(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// a single connection serializes writers and avoids SQLITE_BUSY under load
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

// CreateLink inserts a new link
func (r *Repository) CreateLink(ctx context.Context, link *domain.ShortLink) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO links (id, short_code, owner, long_url, clicks, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		link.ID, link.ShortCode, link.Owner, link.LongURL, link.ClickCount, link.CreatedAt.UTC(),
	)
	if err != nil {
		if conflict := uniqueConflict(err); conflict != nil {
			return fmt.Errorf("failed to create link %s: %w", link.ShortCode, conflict)
		}
		return repository.StoreError("create link", err)
	}
	return nil
}

// GetLink retrieves a live link by its short code
func (r *Repository) GetLink(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE short_code = ? AND deleted_at IS NULL`, shortCode)

	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NotFound(shortCode)
		}
		return nil, repository.StoreError("get link", err)
	}
	return link, nil
}

// FindByOwnerAndURL retrieves the owner's live link for longURL
func (r *Repository) FindByOwnerAndURL(ctx context.Context, owner, longURL string) (*domain.ShortLink, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE owner = ? AND long_url = ? AND deleted_at IS NULL`, owner, longURL)

	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.ErrNotFound, "link not found")
		}
		return nil, repository.StoreError("find link", err)
	}
	return link, nil
}

// ListByOwner retrieves the owner's live links ordered by creation date (desc)
func (r *Repository) ListByOwner(ctx context.Context, owner string) ([]*domain.ShortLink, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE owner = ? AND deleted_at IS NULL ORDER BY created_at DESC, id`, owner)
	if err != nil {
		return nil, repository.StoreError("list links", err)
	}
	defer rows.Close()

	links := make([]*domain.ShortLink, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, repository.StoreError("scan link", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.StoreError("list links", err)
	}
	return links, nil
}

// CodeExists reports whether the code was ever allocated
func (r *Repository) CodeExists(ctx context.Context, shortCode string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM links WHERE short_code = ?)`, shortCode).Scan(&exists)
	if err != nil {
		return false, repository.StoreError("check short code", err)
	}
	return exists, nil
}

// IncrementClicks adds one to the click count in a single statement
func (r *Repository) IncrementClicks(ctx context.Context, shortCode string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE links SET clicks = clicks + 1 WHERE short_code = ? AND deleted_at IS NULL`, shortCode)
	if err != nil {
		return repository.StoreError("increment clicks", err)
	}
	return requireRow(res, shortCode)
}

// DeleteLink tombstones a link, keeping its code reserved
func (r *Repository) DeleteLink(ctx context.Context, shortCode string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE links SET deleted_at = ? WHERE short_code = ? AND deleted_at IS NULL`, time.Now().UTC(), shortCode)
	if err != nil {
		return repository.StoreError("delete link", err)
	}
	return requireRow(res, shortCode)
}

// AppendClick stores a click event
func (r *Repository) AppendClick(ctx context.Context, event *domain.ClickEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO click_events (id, short_code, referrer, user_agent, origin, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.ShortCode, nullString(event.Referrer), nullString(event.UserAgent), nullString(event.Origin),
		event.OccurredAt.UTC(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return repository.NotFound(event.ShortCode)
		}
		return repository.StoreError("append click", err)
	}
	return nil
}

// ListClicks returns the click events for a code, oldest first
func (r *Repository) ListClicks(ctx context.Context, shortCode string) ([]*domain.ClickEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, short_code, referrer, user_agent, origin, occurred_at
		 FROM click_events WHERE short_code = ? ORDER BY occurred_at, id`, shortCode)
	if err != nil {
		return nil, repository.StoreError("list clicks", err)
	}
	defer rows.Close()

	events := make([]*domain.ClickEvent, 0)
	for rows.Next() {
		var (
			event                       domain.ClickEvent
			referrer, userAgent, origin sql.NullString
		)
		if err := rows.Scan(&event.ID, &event.ShortCode, &referrer, &userAgent, &origin, &event.OccurredAt); err != nil {
			return nil, repository.StoreError("scan click", err)
		}
		event.Referrer = referrer.String
		event.UserAgent = userAgent.String
		event.Origin = origin.String
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.StoreError("list clicks", err)
	}
	return events, nil
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return repository.StoreError("ping database", err)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(s scanner) (*domain.ShortLink, error) {
	var link domain.ShortLink
	if err := s.Scan(&link.ID, &link.ShortCode, &link.Owner, &link.LongURL, &link.ClickCount, &link.CreatedAt); err != nil {
		return nil, err
	}
	return &link, nil
}

func requireRow(res sql.Result, shortCode string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return repository.StoreError("read affected rows", err)
	}
	if n == 0 {
		return repository.NotFound(shortCode)
	}
	return nil
}

// uniqueConflict maps a unique constraint failure to the matching domain conflict
func uniqueConflict(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return nil
	}
	if strings.Contains(sqliteErr.Error(), "links.short_code") {
		return domain.ErrCodeTaken
	}
	return domain.ErrLinkExists
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ repository.Repository = (*Repository)(nil)
