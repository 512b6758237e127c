package order

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/littlelemon/internal/domain/auth"
	"github.com/xenking/littlelemon/internal/domain/cart"
	"github.com/xenking/littlelemon/internal/domain/menu"
)

// Status is the free-form fulfilment state of an order. Delivery crews and
// managers may set any non-empty value; StatusPending is the initial one.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
)

// MaxStatusLen bounds the length of a status value.
const MaxStatusLen = 64

// Order is an immutable snapshot of a cart plus its mutable fulfilment state
// (Status and DeliveryCrew).
type Order struct {
	ID     int64
	UserID int64
	// Placer is the user who placed the order. The engine clears it before
	// returning orders to anyone but a manager.
	Placer       *auth.User
	DeliveryCrew *auth.User
	Status       Status
	// Total is the sum of item prices, computed once at placement.
	Total decimal.Decimal
	Date  time.Time
	Items []Item
}

// Item is a line of an order, copied from a cart line at placement.
type Item struct {
	ID        int64
	OrderID   int64
	MenuItem  menu.Item
	Quantity  int
	UnitPrice decimal.Decimal
	Price     decimal.Decimal
}

// Ordering selects the sort order of an order listing.
type Ordering string

const (
	OrderByDateDesc   Ordering = "-date"
	OrderByDate       Ordering = "date"
	OrderByTotal      Ordering = "total"
	OrderByTotalDesc  Ordering = "-total"
	OrderByStatus     Ordering = "status"
	OrderByStatusDesc Ordering = "-status"
)

// ParseOrdering validates a client supplied ordering parameter. An empty
// string selects newest first.
func ParseOrdering(s string) (Ordering, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return OrderByDateDesc, true
	}
	switch o := Ordering(s); o {
	case OrderByDateDesc, OrderByDate, OrderByTotal, OrderByTotalDesc, OrderByStatus, OrderByStatusDesc:
		return o, true
	default:
		return "", false
	}
}

// ListFilter holds the client controlled part of an order listing.
type ListFilter struct {
	Status   Status
	Ordering Ordering
}

// Query is a ListFilter plus the role scope chosen by the engine. Zero scope
// fields mean no constraint.
type Query struct {
	ListFilter
	PlacedBy   int64
	AssignedTo int64
}

// Tx is the set of writes that make up a placement. All of them commit or
// none do.
type Tx interface {
	// LockCart reads the user's cart lines and holds them until the
	// transaction ends.
	LockCart(ctx context.Context, userID int64) ([]cart.Line, error)
	// CreateOrder inserts o and assigns its ID.
	CreateOrder(ctx context.Context, o *Order) error
	InsertItems(ctx context.Context, items []Item) error
	// ClearCart removes the lines returned by LockCart. Lines added to the
	// cart after LockCart stay in the cart.
	ClearCart(ctx context.Context, userID int64) (int64, error)
	SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error
}

// Change is the set of columns an update writes. Zero fields are left as
// stored, so concurrent updates of different fields do not undo each other.
type Change struct {
	Status         Status
	DeliveryCrewID int64
}

// Repository defines persistence operations for orders.
type Repository interface {
	// WithinTx runs fn in a transaction. A non-nil error from fn rolls back
	// every write made through tx.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	List(ctx context.Context, q Query) ([]Order, error)
	// GetByID returns the order with its items, placer and delivery crew, or
	// ErrNotFound.
	GetByID(ctx context.Context, id int64) (*Order, error)
	// Update applies c to the order in a single write and returns the
	// stored order, or ErrNotFound. Fields c leaves zero are not written.
	Update(ctx context.Context, id int64, c Change) (*Order, error)
	// Delete removes the order and its items and reports the number of rows
	// removed.
	Delete(ctx context.Context, id int64) (int64, error)
}

// EventType names an order lifecycle event.
type EventType string

const (
	EventPlaced  EventType = "order.placed"
	EventUpdated EventType = "order.updated"
	EventDeleted EventType = "order.deleted"
)

// Event is published after an order change has been committed.
type Event struct {
	ID             string
	Type           EventType
	OrderID        int64
	UserID         int64
	DeliveryCrewID int64
	Status         Status
	Total          decimal.Decimal
	At             time.Time
}

// Publisher delivers order events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
