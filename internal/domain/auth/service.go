package auth

import (
	"context"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the username is unknown so that both
// miss paths spend the same bcrypt time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("littlelemon"), bcrypt.DefaultCost)

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(h), nil
}

// Service exchanges credentials for bearer tokens and verifies them.
type Service struct {
	creds  CredentialStore
	tokens *Tokens
}

// NewService creates an auth Service.
func NewService(creds CredentialStore, tokens *Tokens) *Service {
	return &Service{creds: creds, tokens: tokens}
}

// IssueToken checks the password for username and signs a token on success.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) IssueToken(ctx context.Context, username, password string) (*Token, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	c, err := s.creds.FindCredentials(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "find credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.tokens.Issue(c.User)
}

// Authenticate resolves a bearer token to its principal.
func (s *Service) Authenticate(_ context.Context, raw string) (Principal, error) {
	if raw == "" {
		return Principal{}, ErrInvalidToken
	}
	return s.tokens.Parse(raw)
}
