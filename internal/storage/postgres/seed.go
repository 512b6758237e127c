package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/littlelemon/internal/domain/auth"
)

const (
	upsertCategorySQL = `INSERT INTO categories (slug, title) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET title = EXCLUDED.title
		RETURNING id`

	upsertMenuItemSQL = `INSERT INTO menu_items (title, price, featured, category_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (title) DO UPDATE
			SET price = EXCLUDED.price, featured = EXCLUDED.featured, category_id = EXCLUDED.category_id
		RETURNING id`

	upsertUserSQL = `INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE
			SET email = EXCLUDED.email, password_hash = EXCLUDED.password_hash
		RETURNING id`

	addUserToGroupSQL = `INSERT INTO user_groups (user_id, group_id)
		SELECT $1, id FROM groups WHERE name = $2
		ON CONFLICT DO NOTHING`
)

// Seeder writes reference data: categories, menu items, users and group
// memberships. Every write is an upsert so seeding can be repeated.
type Seeder struct {
	pool *pgxpool.Pool
}

// NewSeeder returns a Seeder that uses the given pool.
func NewSeeder(pool *pgxpool.Pool) *Seeder {
	return &Seeder{pool: pool}
}

// UpsertCategory creates or renames a category and returns its ID.
func (s *Seeder) UpsertCategory(ctx context.Context, slug, title string) (int64, error) {
	var id int64
	if err := s.pool.QueryRow(ctx, upsertCategorySQL, slug, title).Scan(&id); err != nil {
		return 0, fmt.Errorf("upserting category %q: %w", slug, err)
	}
	return id, nil
}

// UpsertMenuItem creates or updates a menu item keyed by title.
func (s *Seeder) UpsertMenuItem(ctx context.Context, title string, price decimal.Decimal, featured bool, categoryID int64) (int64, error) {
	var id int64
	if err := s.pool.QueryRow(ctx, upsertMenuItemSQL, title, price, featured, categoryID).Scan(&id); err != nil {
		return 0, fmt.Errorf("upserting menu item %q: %w", title, err)
	}
	return id, nil
}

// UpsertUser creates or updates a user keyed by username.
func (s *Seeder) UpsertUser(ctx context.Context, username, email, passwordHash string) (int64, error) {
	var id int64
	if err := s.pool.QueryRow(ctx, upsertUserSQL, username, email, passwordHash).Scan(&id); err != nil {
		return 0, fmt.Errorf("upserting user %q: %w", username, err)
	}
	return id, nil
}

// AddUserToGroup grants role to the user.
func (s *Seeder) AddUserToGroup(ctx context.Context, userID int64, role auth.Role) error {
	_, err := s.pool.Exec(ctx, addUserToGroupSQL, userID, string(role))
	if err != nil {
		return fmt.Errorf("adding user %d to %q: %w", userID, role, err)
	}
	return nil
}
