package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/littlelemon/internal/domain/auth"
	"github.com/xenking/littlelemon/internal/domain/cart"
	"github.com/xenking/littlelemon/internal/domain/order"
)

const (
	orderSelect = `SELECT o.id, o.user_id, u.username, u.email,
			o.delivery_crew_id, d.username, d.email,
			o.status, o.total, o.date
		FROM orders o
		JOIN users u ON u.id = o.user_id
		LEFT JOIN users d ON d.id = o.delivery_crew_id`

	listOrdersSQL = orderSelect + `
		WHERE ($1::bigint = 0 OR o.user_id = $1)
		  AND ($2::bigint = 0 OR o.delivery_crew_id = $2)
		  AND ($3::text = '' OR o.status = $3)
		ORDER BY `

	getOrderByIDSQL = orderSelect + ` WHERE o.id = $1`

	listOrderItemsSQL = `SELECT oi.id, oi.order_id, oi.quantity, oi.unit_price, oi.price, ` + menuItemColumns + `
		FROM order_items oi
		JOIN menu_items m ON m.id = oi.menuitem_id
		JOIN categories c ON c.id = m.category_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.id`

	insertOrderSQL = `INSERT INTO orders (user_id, status, total, date)
		VALUES ($1, $2, $3, $4) RETURNING id`

	setOrderTotalSQL = `UPDATE orders SET total = $2 WHERE id = $1`

	updateOrderSQL = `UPDATE orders
		SET status = COALESCE(NULLIF($2::text, ''), status),
		    delivery_crew_id = COALESCE(NULLIF($3::bigint, 0), delivery_crew_id)
		WHERE id = $1`

	deleteOrderItemsSQL = `DELETE FROM order_items WHERE order_id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var orderOrderings = map[order.Ordering]string{
	order.OrderByDateDesc:   "o.date DESC, o.id DESC",
	order.OrderByDate:       "o.date, o.id",
	order.OrderByTotal:      "o.total, o.id",
	order.OrderByTotalDesc:  "o.total DESC, o.id",
	order.OrderByStatus:     "o.status, o.id",
	order.OrderByStatusDesc: "o.status DESC, o.id",
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// WithinTx runs fn in a read committed transaction. Cart rows are locked
// with FOR UPDATE, so a concurrent placement for the same user waits and then
// observes the emptied cart. ClearCart deletes only the locked rows, so lines
// inserted after LockCart survive the placement.
func (r *OrderRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &orderTx{tx: tx})
	})
}

// List returns orders matching q with their items.
func (r *OrderRepository) List(ctx context.Context, q order.Query) ([]order.Order, error) {
	orderBy, ok := orderOrderings[q.Ordering]
	if !ok {
		return nil, fmt.Errorf("unknown order ordering %q", q.Ordering)
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL+orderBy, q.PlacedBy, q.AssignedTo, string(q.Status))
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetByID returns the order with its items, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	one := []order.Order{o}
	if err := r.attachItems(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// Update writes the non-zero fields of c in a single statement and returns
// the stored order.
func (r *OrderRepository) Update(ctx context.Context, id int64, c order.Change) (*order.Order, error) {
	tag, err := r.pool.Exec(ctx, updateOrderSQL, id, string(c.Status), c.DeliveryCrewID)
	if err != nil {
		return nil, fmt.Errorf("updating order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, order.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes the order and its items in one transaction.
func (r *OrderRepository) Delete(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		items, err := tx.Exec(ctx, deleteOrderItemsSQL, id)
		if err != nil {
			return fmt.Errorf("deleting items of order %d: %w", id, err)
		}
		orders, err := tx.Exec(ctx, deleteOrderSQL, id)
		if err != nil {
			return fmt.Errorf("deleting order %d: %w", id, err)
		}
		if orders.RowsAffected() == 0 {
			return nil
		}
		n = items.RowsAffected() + orders.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = i
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}

	for _, it := range items {
		i := byID[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return nil
}

// orderTx implements order.Tx on a pgx transaction.
type orderTx struct {
	tx     pgx.Tx
	locked []int64
}

func (t *orderTx) LockCart(ctx context.Context, userID int64) ([]cart.Line, error) {
	lines, err := queryCartLines(ctx, t.tx, lockCartLinesSQL, userID)
	if err != nil {
		return nil, err
	}
	t.locked = make([]int64, len(lines))
	for i, l := range lines {
		t.locked[i] = l.ID
	}
	return lines, nil
}

func (t *orderTx) CreateOrder(ctx context.Context, o *order.Order) error {
	err := t.tx.QueryRow(ctx, insertOrderSQL, o.UserID, string(o.Status), o.Total, o.Date).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("inserting order for user %d: %w", o.UserID, err)
	}
	return nil
}

func (t *orderTx) InsertItems(ctx context.Context, items []order.Item) error {
	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"order_items"},
		[]string{"order_id", "menuitem_id", "quantity", "unit_price", "price"},
		pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
			it := items[i]
			return []any{it.OrderID, it.MenuItem.ID, int32(it.Quantity), it.UnitPrice, it.Price}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copying order items: %w", err)
	}
	return nil
}

func (t *orderTx) ClearCart(ctx context.Context, userID int64) (int64, error) {
	tag, err := t.tx.Exec(ctx, clearLockedLinesSQL, userID, t.locked)
	if err != nil {
		return 0, fmt.Errorf("clearing cart for user %d: %w", userID, err)
	}
	return tag.RowsAffected(), nil
}

func (t *orderTx) SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, setOrderTotalSQL, orderID, total)
	if err != nil {
		return fmt.Errorf("setting total of order %d: %w", orderID, err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		placer    auth.User
		crewID    *int64
		crewName  *string
		crewEmail *string
		status    string
		date      time.Time
	)
	err := row.Scan(
		&o.ID, &placer.ID, &placer.Username, &placer.Email,
		&crewID, &crewName, &crewEmail,
		&status, &o.Total, &date,
	)
	if err != nil {
		return o, err
	}

	o.UserID = placer.ID
	o.Placer = &placer
	o.Status = order.Status(status)
	o.Date = date.UTC()
	if crewID != nil {
		o.DeliveryCrew = &auth.User{ID: *crewID}
		if crewName != nil {
			o.DeliveryCrew.Username = *crewName
		}
		if crewEmail != nil {
			o.DeliveryCrew.Email = *crewEmail
		}
	}
	return o, nil
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it  order.Item
		qty int32
	)
	err := row.Scan(
		&it.ID, &it.OrderID, &qty, &it.UnitPrice, &it.Price,
		&it.MenuItem.ID, &it.MenuItem.Title, &it.MenuItem.Price, &it.MenuItem.Featured,
		&it.MenuItem.Category.ID, &it.MenuItem.Category.Slug, &it.MenuItem.Category.Title,
	)
	it.Quantity = int(qty)
	return it, err
}
