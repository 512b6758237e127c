package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens(t *testing.T, issuer string, now time.Time) *Tokens {
	t.Helper()
	tok, err := NewTokens(TokenConfig{Secret: []byte("test-secret"), TTL: time.Hour, Issuer: issuer})
	require.NoError(t, err)
	tok.now = func() time.Time { return now }
	return tok
}

func TestNewTokens_EmptySecret(t *testing.T) {
	_, err := NewTokens(TokenConfig{})
	require.Error(t, err)
}

func TestTokens_RoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tok := newTestTokens(t, "littlelemon", now)

	issued, err := tok.Issue(User{ID: 42, Username: "mario"})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), issued.ExpiresAt)

	p, err := tok.Parse(issued.Value)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: 42, Username: "mario"}, p)
}

func TestTokens_Rejects(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tok := newTestTokens(t, "littlelemon", now)

	valid, err := tok.Issue(User{ID: 7, Username: "alice"})
	require.NoError(t, err)

	sign := func(method jwt.SigningMethod, key any, c claims) string {
		s, err := jwt.NewWithClaims(method, c).SignedString(key)
		require.NoError(t, err)
		return s
	}
	base := claims{
		Name: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			Issuer:    "littlelemon",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}

	noExpiry := base
	noExpiry.ExpiresAt = nil
	badSubject := base
	badSubject.Subject = "alice"
	otherIssuer := base
	otherIssuer.Issuer = "someone-else"

	tests := []struct {
		name  string
		raw   string
		now   time.Time
		cause error
	}{
		{name: "garbage", raw: "not-a-token", now: now, cause: jwt.ErrTokenMalformed},
		{name: "expired", raw: valid.Value, now: now.Add(2 * time.Hour), cause: jwt.ErrTokenExpired},
		{name: "wrong secret", raw: sign(jwt.SigningMethodHS256, []byte("other"), base), now: now, cause: jwt.ErrTokenSignatureInvalid},
		{name: "unsigned", raw: sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, base), now: now},
		{name: "no expiry", raw: sign(jwt.SigningMethodHS256, []byte("test-secret"), noExpiry), now: now, cause: jwt.ErrTokenRequiredClaimMissing},
		{name: "non numeric subject", raw: sign(jwt.SigningMethodHS256, []byte("test-secret"), badSubject), now: now},
		{name: "other issuer", raw: sign(jwt.SigningMethodHS256, []byte("test-secret"), otherIssuer), now: now, cause: jwt.ErrTokenInvalidIssuer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.now
			tok.now = func() time.Time { return at }
			_, err := tok.Parse(tt.raw)
			require.ErrorIs(t, err, ErrInvalidToken)
			if tt.cause != nil {
				require.ErrorIs(t, err, tt.cause, "the parser error stays in the chain")
			}
		})
	}
}
