package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockCredentialStore struct {
	byName map[string]*Credentials
	err    error
}

func (m *mockCredentialStore) FindCredentials(_ context.Context, username string) (*Credentials, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.byName[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return c, nil
}

func newTestService(t *testing.T) (*Service, *mockCredentialStore) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("lemon!"), bcrypt.MinCost)
	require.NoError(t, err)

	store := &mockCredentialStore{byName: map[string]*Credentials{
		"mario": {User: User{ID: 1, Username: "mario"}, PasswordHash: string(hash)},
	}}
	tok, err := NewTokens(TokenConfig{Secret: []byte("s3cret"), TTL: time.Hour})
	require.NoError(t, err)
	return NewService(store, tok), store
}

func TestService_IssueAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tok, err := svc.IssueToken(ctx, "mario", "lemon!")
	require.NoError(t, err)
	require.NotEmpty(t, tok.Value)

	p, err := svc.Authenticate(ctx, tok.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.UserID)
	assert.Equal(t, "mario", p.Username)
}

func TestService_IssueToken_Rejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "mario", password: "lime"},
		{name: "unknown user", username: "luigi", password: "lemon!"},
		{name: "empty username", username: "", password: "lemon!"},
		{name: "empty password", username: "mario", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.IssueToken(ctx, tt.username, tt.password)
			require.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestService_IssueToken_StoreError(t *testing.T) {
	svc, store := newTestService(t)
	store.err = errors.New("connection refused")

	_, err := svc.IssueToken(context.Background(), "mario", "lemon!")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Authenticate_Empty(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Authenticate(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("lemon!")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("lemon!")))
}
