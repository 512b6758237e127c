package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/littlelemon/internal/domain/menu"
)

const (
	menuItemColumns = `m.id, m.title, m.price, m.featured, c.id, c.slug, c.title`

	listMenuItemsSQL = `SELECT ` + menuItemColumns + `
		FROM menu_items m JOIN categories c ON c.id = m.category_id
		WHERE ($1::text = '' OR m.title ILIKE $1)
		  AND ($2::text = '' OR c.slug = $2)
		ORDER BY `

	getMenuItemByIDSQL = `SELECT ` + menuItemColumns + `
		FROM menu_items m JOIN categories c ON c.id = m.category_id
		WHERE m.id = $1`
)

var menuOrderings = map[menu.Ordering]string{
	menu.OrderByID:        "m.id",
	menu.OrderByPrice:     "m.price, m.id",
	menu.OrderByPriceDesc: "m.price DESC, m.id",
	menu.OrderByTitle:     "m.title, m.id",
	menu.OrderByTitleDesc: "m.title DESC, m.id",
}

var _ menu.Repository = (*MenuRepository)(nil)

// MenuRepository implements menu.Repository backed by PostgreSQL.
type MenuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository returns a MenuRepository that uses the given pool.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

// List returns menu items matching f.
func (r *MenuRepository) List(ctx context.Context, f menu.ListFilter) ([]menu.Item, error) {
	orderBy, ok := menuOrderings[f.Ordering]
	if !ok {
		return nil, fmt.Errorf("unknown menu ordering %q", f.Ordering)
	}
	rows, err := r.pool.Query(ctx, listMenuItemsSQL+orderBy, likePattern(f.Search), f.Category)
	if err != nil {
		return nil, fmt.Errorf("listing menu items: %w", err)
	}
	return pgx.CollectRows(rows, scanMenuItem)
}

// GetByID returns a single menu item by its identifier.
func (r *MenuRepository) GetByID(ctx context.Context, id int64) (*menu.Item, error) {
	rows, err := r.pool.Query(ctx, getMenuItemByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting menu item %d: %w", id, err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanMenuItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, menu.ErrNotFound
		}
		return nil, fmt.Errorf("getting menu item %d: %w", id, err)
	}
	return &item, nil
}

func scanMenuItem(row pgx.CollectableRow) (menu.Item, error) {
	var it menu.Item
	err := row.Scan(
		&it.ID, &it.Title, &it.Price, &it.Featured,
		&it.Category.ID, &it.Category.Slug, &it.Category.Title,
	)
	return it, err
}
