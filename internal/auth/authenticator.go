package auth

import (
	"context"
	"fmt"

	"github.com/joshdurbin/shortlink/internal/domain"
)

type identityKey struct{}

// WithIdentity returns a context carrying the caller identity
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the caller identity, or "" for anonymous callers
func IdentityFrom(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey{}).(string)
	return identity
}

// Authenticator verifies bearer tokens against the revocation list
type Authenticator struct {
	tokens      *TokenManager
	revocations Revocations
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(tokens *TokenManager, revocations Revocations) *Authenticator {
	return &Authenticator{
		tokens:      tokens,
		revocations: revocations,
	}
}

// Authenticate returns the claims of a valid, unrevoked token. An unreachable
// revocation list fails closed with domain.ErrStoreUnavailable.
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (*Claims, error) {
	claims, err := a.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}

	revoked, err := a.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "revocation list unavailable", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}
	return claims, nil
}

// Revoke invalidates the token for the rest of its lifetime
func (a *Authenticator) Revoke(ctx context.Context, claims *Claims) error {
	return a.revocations.Revoke(ctx, claims.ID, claims.Remaining(a.tokens.now()))
}
