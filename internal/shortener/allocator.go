package shortener

import (
	"context"
	"errors"
	"fmt"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// InsertFunc persists a link under code. It must return an error wrapping
// domain.ErrCodeTaken when the store's unique constraint rejects the code.
type InsertFunc func(ctx context.Context, code string) error

// Allocator hands out short codes that are unique in durable storage
type Allocator struct {
	generator Generator
	oracle    Oracle
	config    Config
	onRetry   func()
}

// NewAllocator creates an allocator drawing from generator and checking oracle
func NewAllocator(generator Generator, oracle Oracle, config Config) *Allocator {
	if config.Length <= 0 {
		config.Length = DefaultConfig().Length
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	return &Allocator{
		generator: generator,
		oracle:    oracle,
		config:    config,
	}
}

// OnRetry registers a hook called every time a drawn code turns out to be taken
func (a *Allocator) OnRetry(fn func()) {
	a.onRetry = fn
}

// Allocate draws candidates until the oracle reports one as free.
// The result is only a candidate: another instance may claim it before insert.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < a.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := a.generator.Generate(a.config.Length)
		if err != nil {
			return "", fmt.Errorf("failed to generate short code: %w", err)
		}

		exists, err := a.oracle.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check short code %s: %w", code, err)
		}
		if !exists {
			return code, nil
		}
		a.retried()
	}

	return "", ErrExhausted
}

// Reserve runs the draw, check and insert cycle until insert accepts a code.
// A uniqueness violation at insert restarts the cycle; any other error is returned as is.
func (a *Allocator) Reserve(ctx context.Context, insert InsertFunc) (string, error) {
	for attempt := 0; attempt < a.config.MaxAttempts; attempt++ {
		code, err := a.Allocate(ctx)
		if err != nil {
			return "", err
		}

		err = insert(ctx, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, domain.ErrCodeTaken) {
			return "", err
		}
		a.retried()
	}

	return "", ErrExhausted
}

func (a *Allocator) retried() {
	if a.onRetry != nil {
		a.onRetry()
	}
}
