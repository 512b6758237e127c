package cart

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/littlelemon/internal/domain/menu"
)

// Line is one entry of a user's cart. UnitPrice is the menu price when the
// line was added and Price is UnitPrice × Quantity.
type Line struct {
	ID        int64
	UserID    int64
	Item      menu.Item
	Quantity  int
	UnitPrice decimal.Decimal
	Price     decimal.Decimal
}

// Repository persists cart lines. A user's cart is the set of lines with
// their user id; there is no separate cart record.
type Repository interface {
	// Add inserts l and assigns its ID.
	Add(ctx context.Context, l *Line) error
	List(ctx context.Context, userID int64) ([]Line, error)
	// Clear deletes every line of the user and reports how many were removed.
	Clear(ctx context.Context, userID int64) (int64, error)
}
