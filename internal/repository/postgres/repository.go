package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/repository"
)

const (
	linkColumns = `id::text, short_code, owner, long_url, clicks, created_at`

	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	shortCodeConstraint = "links_short_code_key"
)

// Config holds PostgreSQL connection settings
type Config struct {
	DSN      string
	MaxConns int32
}

// Repository implements repository.Repository using PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL, applies migrations and returns a repository
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Repository, error) {
	if err := Migrate(cfg.DSN, logger); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// CreateLink inserts a new link
func (r *Repository) CreateLink(ctx context.Context, link *domain.ShortLink) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO links (id, short_code, owner, long_url, clicks, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		link.ID, link.ShortCode, link.Owner, link.LongURL, link.ClickCount, link.CreatedAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == shortCodeConstraint {
				return fmt.Errorf("failed to create link %s: %w", link.ShortCode, domain.ErrCodeTaken)
			}
			return fmt.Errorf("failed to create link %s: %w", link.ShortCode, domain.ErrLinkExists)
		}
		return repository.StoreError("create link", err)
	}
	return nil
}

// GetLink retrieves a live link by its short code
func (r *Repository) GetLink(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM links WHERE short_code = $1 AND deleted_at IS NULL`, shortCode)

	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.NotFound(shortCode)
		}
		return nil, repository.StoreError("get link", err)
	}
	return link, nil
}

// FindByOwnerAndURL retrieves the owner's live link for longURL
func (r *Repository) FindByOwnerAndURL(ctx context.Context, owner, longURL string) (*domain.ShortLink, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM links WHERE owner = $1 AND long_url = $2 AND deleted_at IS NULL`, owner, longURL)

	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewError(domain.ErrNotFound, "link not found")
		}
		return nil, repository.StoreError("find link", err)
	}
	return link, nil
}

// ListByOwner retrieves the owner's live links ordered by creation date (desc)
func (r *Repository) ListByOwner(ctx context.Context, owner string) ([]*domain.ShortLink, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+linkColumns+` FROM links WHERE owner = $1 AND deleted_at IS NULL ORDER BY created_at DESC, id`, owner)
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
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM links WHERE short_code = $1)`, shortCode).Scan(&exists)
	if err != nil {
		return false, repository.StoreError("check short code", err)
	}
	return exists, nil
}

// IncrementClicks adds one to the click count in a single statement
func (r *Repository) IncrementClicks(ctx context.Context, shortCode string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE links SET clicks = clicks + 1 WHERE short_code = $1 AND deleted_at IS NULL`, shortCode)
	if err != nil {
		return repository.StoreError("increment clicks", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.NotFound(shortCode)
	}
	return nil
}

// DeleteLink tombstones a link, keeping its code reserved
func (r *Repository) DeleteLink(ctx context.Context, shortCode string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE links SET deleted_at = now() WHERE short_code = $1 AND deleted_at IS NULL`, shortCode)
	if err != nil {
		return repository.StoreError("delete link", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.NotFound(shortCode)
	}
	return nil
}

// AppendClick stores a click event
func (r *Repository) AppendClick(ctx context.Context, event *domain.ClickEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO click_events (id, short_code, referrer, user_agent, origin, occurred_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.ShortCode, nullable(event.Referrer), nullable(event.UserAgent), nullable(event.Origin),
		event.OccurredAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return repository.NotFound(event.ShortCode)
		}
		return repository.StoreError("append click", err)
	}
	return nil
}

// ListClicks returns the click events for a code, oldest first
func (r *Repository) ListClicks(ctx context.Context, shortCode string) ([]*domain.ClickEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, short_code, COALESCE(referrer, ''), COALESCE(user_agent, ''), COALESCE(origin, ''), occurred_at
		 FROM click_events WHERE short_code = $1 ORDER BY occurred_at, id`, shortCode)
	if err != nil {
		return nil, repository.StoreError("list clicks", err)
	}
	defer rows.Close()

	events := make([]*domain.ClickEvent, 0)
	for rows.Next() {
		var event domain.ClickEvent
		if err := rows.Scan(&event.ID, &event.ShortCode, &event.Referrer, &event.UserAgent, &event.Origin, &event.OccurredAt); err != nil {
			return nil, repository.StoreError("scan click", err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.StoreError("list clicks", err)
	}
	return events, nil
}

// Ping checks the pool can reach the database
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return repository.StoreError("ping database", err)
	}
	return nil
}

// Close closes the connection pool
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func scanLink(row pgx.Row) (*domain.ShortLink, error) {
	var link domain.ShortLink
	if err := row.Scan(&link.ID, &link.ShortCode, &link.Owner, &link.LongURL, &link.ClickCount, &link.CreatedAt); err != nil {
		return nil, err
	}
	return &link, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ repository.Repository = (*Repository)(nil)
