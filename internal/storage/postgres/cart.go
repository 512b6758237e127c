package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/littlelemon/internal/domain/cart"
)

const (
	cartLineSelect = `SELECT l.id, l.user_id, l.quantity, l.unit_price, l.price, ` + menuItemColumns + `
		FROM cart_lines l
		JOIN menu_items m ON m.id = l.menuitem_id
		JOIN categories c ON c.id = m.category_id
		WHERE l.user_id = $1
		ORDER BY l.id`

	listCartLinesSQL = cartLineSelect

	lockCartLinesSQL = cartLineSelect + ` FOR UPDATE OF l`

	insertCartLineSQL = `INSERT INTO cart_lines (user_id, menuitem_id, quantity, unit_price, price)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	clearCartSQL = `DELETE FROM cart_lines WHERE user_id = $1`

	clearLockedLinesSQL = `DELETE FROM cart_lines WHERE user_id = $1 AND id = ANY($2)`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Add inserts a cart line and sets its ID.
func (r *CartRepository) Add(ctx context.Context, l *cart.Line) error {
	err := r.pool.QueryRow(ctx, insertCartLineSQL,
		l.UserID, l.Item.ID, l.Quantity, l.UnitPrice, l.Price,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("inserting cart line for user %d: %w", l.UserID, err)
	}
	return nil
}

// List returns the user's cart lines in insertion order.
func (r *CartRepository) List(ctx context.Context, userID int64) ([]cart.Line, error) {
	return queryCartLines(ctx, r.pool, listCartLinesSQL, userID)
}

// Clear deletes all of the user's cart lines.
func (r *CartRepository) Clear(ctx context.Context, userID int64) (int64, error) {
	return clearCart(ctx, r.pool, userID)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryCartLines(ctx context.Context, q querier, sql string, userID int64) ([]cart.Line, error) {
	rows, err := q.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart lines for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func clearCart(ctx context.Context, db execer, userID int64) (int64, error) {
	tag, err := db.Exec(ctx, clearCartSQL, userID)
	if err != nil {
		return 0, fmt.Errorf("clearing cart for user %d: %w", userID, err)
	}
	return tag.RowsAffected(), nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(
		&l.ID, &l.UserID, &l.Quantity, &l.UnitPrice, &l.Price,
		&l.Item.ID, &l.Item.Title, &l.Item.Price, &l.Item.Featured,
		&l.Item.Category.ID, &l.Item.Category.Slug, &l.Item.Category.Title,
	)
	return l, err
}
