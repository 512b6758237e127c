package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/littlelemon/internal/domain/auth"
)

const (
	hasRoleSQL = `SELECT EXISTS (
		SELECT 1 FROM user_groups ug JOIN groups g ON g.id = ug.group_id
		WHERE ug.user_id = $1 AND g.name = $2)`

	resolveUserByRoleSQL = `SELECT u.id, u.username, u.email
		FROM users u
		JOIN user_groups ug ON ug.user_id = u.id
		JOIN groups g ON g.id = ug.group_id
		WHERE u.id = $1 AND g.name = $2`

	findCredentialsSQL = `SELECT id, username, email, password_hash FROM users WHERE username = $1`
)

var (
	_ auth.Directory       = (*UserRepository)(nil)
	_ auth.CredentialStore = (*UserRepository)(nil)
)

// UserRepository provides user, group and credential lookups backed by
// PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// HasRole reports whether the user belongs to the group named by role.
func (r *UserRepository) HasRole(ctx context.Context, userID int64, role auth.Role) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, hasRoleSQL, userID, string(role)).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking role %q of user %d: %w", role, userID, err)
	}
	return ok, nil
}

// ResolveUserByIDAndRole returns the user only if they belong to role.
func (r *UserRepository) ResolveUserByIDAndRole(ctx context.Context, id int64, role auth.Role) (*auth.User, error) {
	rows, err := r.pool.Query(ctx, resolveUserByRoleSQL, id, string(role))
	if err != nil {
		return nil, fmt.Errorf("resolving user %d: %w", id, err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (auth.User, error) {
		var u auth.User
		err := row.Scan(&u.ID, &u.Username, &u.Email)
		return u, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("resolving user %d: %w", id, err)
	}
	return &u, nil
}

// FindCredentials looks up a user's password hash by username.
func (r *UserRepository) FindCredentials(ctx context.Context, username string) (*auth.Credentials, error) {
	var c auth.Credentials
	err := r.pool.QueryRow(ctx, findCredentialsSQL, username).
		Scan(&c.ID, &c.Username, &c.Email, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("finding credentials of %q: %w", username, err)
	}
	return &c, nil
}
