package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/littlelemon/internal/domain/auth"
	"github.com/xenking/littlelemon/internal/domain/menu"
)

// MaxQuantity bounds the quantity of a single line.
const MaxQuantity = 32767

// InvalidQuantityError indicates a line quantity outside 1..MaxQuantity.
type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be between 1 and %d, got %d", MaxQuantity, e.Quantity)
}

// MenuItemNotFoundError indicates the referenced menu item does not exist.
type MenuItemNotFoundError struct {
	MenuItemID int64
}

func (e *MenuItemNotFoundError) Error() string {
	return fmt.Sprintf("menu item %d not found", e.MenuItemID)
}

func (e *MenuItemNotFoundError) Unwrap() error { return menu.ErrNotFound }

// Service manages the per-user carts.
type Service struct {
	menu  menu.Repository
	lines Repository
}

// NewService creates a cart Service.
func NewService(catalog menu.Repository, lines Repository) *Service {
	return &Service{menu: catalog, lines: lines}
}

// AddLine appends a line for menuItemID to the user's cart, snapshotting the
// current menu price. Repeated items are not merged.
func (s *Service) AddLine(ctx context.Context, user auth.Principal, menuItemID int64, quantity int) (*Line, error) {
	if quantity < 1 || quantity > MaxQuantity {
		return nil, &InvalidQuantityError{Quantity: quantity}
	}

	item, err := s.menu.GetByID(ctx, menuItemID)
	if err != nil {
		if errors.Is(err, menu.ErrNotFound) {
			return nil, &MenuItemNotFoundError{MenuItemID: menuItemID}
		}
		return nil, errors.Wrap(err, "get menu item")
	}

	l := &Line{
		UserID:    user.UserID,
		Item:      *item,
		Quantity:  quantity,
		UnitPrice: item.Price,
		Price:     item.Price.Mul(decimal.NewFromInt(int64(quantity))),
	}
	if err := s.lines.Add(ctx, l); err != nil {
		return nil, errors.Wrap(err, "add cart line")
	}

	zctx.From(ctx).Debug("Cart line added",
		zap.Int64("user_id", user.UserID),
		zap.Int64("menuitem_id", menuItemID),
		zap.Int("quantity", quantity),
	)
	return l, nil
}

// ListLines returns every line in the user's cart.
func (s *Service) ListLines(ctx context.Context, user auth.Principal) ([]Line, error) {
	lines, err := s.lines.List(ctx, user.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart lines")
	}
	return lines, nil
}

// ClearAll empties the user's cart. Clearing an empty cart succeeds with 0.
func (s *Service) ClearAll(ctx context.Context, user auth.Principal) (int64, error) {
	n, err := s.lines.Clear(ctx, user.UserID)
	if err != nil {
		return 0, errors.Wrap(err, "clear cart")
	}
	return n, nil
}
