// Package auth resolves who is calling and which roles they hold.
//
// Roles come from named group membership. Manager and Delivery-crew are the
// recognised groups; a user in neither is a customer.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// Role is the name of a group that grants order permissions.
type Role string

const (
	RoleManager      Role = "Manager"
	RoleDeliveryCrew Role = "Delivery-crew"
)

var (
	// ErrUserNotFound is returned when a user lookup misses, including
	// lookups constrained to a role the user does not hold.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when a username/password pair does
	// not match a stored account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for malformed, expired or forged tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// User is the public view of an account.
type User struct {
	ID       int64
	Username string
	Email    string
}

// Principal is the authenticated actor making a request.
type Principal struct {
	UserID   int64
	Username string
}

// Directory answers group membership questions. The order engine only reads
// from it.
type Directory interface {
	HasRole(ctx context.Context, userID int64, role Role) (bool, error)
	ResolveUserByIDAndRole(ctx context.Context, id int64, role Role) (*User, error)
}

// Credentials pairs an account with its bcrypt password hash.
type Credentials struct {
	User
	PasswordHash string
}

// CredentialStore looks up accounts for token issuance.
type CredentialStore interface {
	FindCredentials(ctx context.Context, username string) (*Credentials, error)
}
