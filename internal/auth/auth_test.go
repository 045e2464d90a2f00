package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/testutil"
)

func testTokenManager() *TokenManager {
	return NewTokenManager(Config{Secret: "test-secret-0123456789", Issuer: "shortlink", TokenTTL: time.Hour})
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := testTokenManager()

	raw, issued, err := m.Issue("alice")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := m.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Identity())
	assert.Equal(t, issued.ID, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), claims.Remaining(time.Now()).Seconds(), 5)
}

func TestTokenManager_Parse_Rejects(t *testing.T) {
	m := testTokenManager()
	good, _, err := m.Issue("alice")
	require.NoError(t, err)

	other := NewTokenManager(Config{Secret: "another-secret-0123456789", Issuer: "shortlink", TokenTTL: time.Hour})
	forged, _, err := other.Issue("alice")
	require.NoError(t, err)

	wrongIssuer := NewTokenManager(Config{Secret: "test-secret-0123456789", Issuer: "elsewhere", TokenTTL: time.Hour})
	foreign, _, err := wrongIssuer.Issue("alice")
	require.NoError(t, err)

	expiredMgr := testTokenManager()
	expiredMgr.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := expiredMgr.Issue("alice")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice", ID: "x"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":       "not-a-token",
		"bad signature": forged,
		"wrong issuer":  foreign,
		"expired":       expired,
		"alg none":      unsigned,
		"truncated":     good[:len(good)-4],
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.Parse(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenManager_Issue_EmptyIdentity(t *testing.T) {
	_, _, err := testTokenManager().Issue("")
	assert.Error(t, err)
}

func TestAuthenticator_Revoke(t *testing.T) {
	m := testTokenManager()
	a := NewAuthenticator(m, NewMemoryRevocations())
	ctx := context.Background()

	raw, _, err := m.Issue("alice")
	require.NoError(t, err)
	other, _, err := m.Issue("alice")
	require.NoError(t, err)

	claims, err := a.Authenticate(ctx, raw)
	require.NoError(t, err)
	require.NoError(t, a.Revoke(ctx, claims))

	_, err = a.Authenticate(ctx, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// other tokens of the same user stay valid
	_, err = a.Authenticate(ctx, other)
	assert.NoError(t, err)
}

type unavailableRevocations struct{}

func (unavailableRevocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (unavailableRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestAuthenticator_RevocationListDown(t *testing.T) {
	m := testTokenManager()
	a := NewAuthenticator(m, unavailableRevocations{})

	raw, _, err := m.Issue("alice")
	require.NoError(t, err)

	claims, err := a.Authenticate(context.Background(), raw)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestMemoryRevocations_Expiry(t *testing.T) {
	r := NewMemoryRevocations()
	ctx := context.Background()

	require.NoError(t, r.Revoke(ctx, "jti-1", 50*time.Millisecond))
	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.Eventually(t, func() bool {
		revoked, err := r.IsRevoked(ctx, "jti-1")
		return err == nil && !revoked
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, r.Revoke(ctx, "jti-2", 0))
	revoked, err = r.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevocations(t *testing.T) {
	client := testutil.Redis(t)
	r := NewRedisRevocations(client)
	ctx := context.Background()

	require.NoError(t, r.Revoke(ctx, "jti-1", time.Minute))
	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl, err := client.TTL(ctx, "revoked_token:jti-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	revoked, err = r.IsRevoked(ctx, "jti-unknown")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestStaticDirectory(t *testing.T) {
	ctx := context.Background()

	open := NewStaticDirectory(nil)
	ok, err := open.Exists(ctx, "anyone")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = open.Exists(ctx, "")
	assert.False(t, ok)

	listed := NewStaticDirectory([]string{"alice", "bob"})
	ok, _ = listed.Exists(ctx, "alice")
	assert.True(t, ok)
	ok, _ = listed.Exists(ctx, "mallory")
	assert.False(t, ok)
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, IdentityFrom(ctx))
	assert.Equal(t, "alice", IdentityFrom(WithIdentity(ctx, "alice")))
}
