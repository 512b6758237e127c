package menu

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested menu item does not exist.
var ErrNotFound = errors.New("menu item not found")

// Category groups menu items for browsing.
type Category struct {
	ID    int64
	Slug  string
	Title string
}

// MaxPrice is the largest price a menu item may carry.
var MaxPrice = decimal.RequireFromString("999999.99")

// Item is a priced dish on the menu. Carts and orders snapshot its price at
// the moment a line is created.
type Item struct {
	ID       int64
	Title    string
	Price    decimal.Decimal
	Featured bool
	Category Category
}

// Ordering selects the sort order of a catalog listing.
type Ordering string

const (
	OrderByID        Ordering = ""
	OrderByPrice     Ordering = "price"
	OrderByPriceDesc Ordering = "-price"
	OrderByTitle     Ordering = "title"
	OrderByTitleDesc Ordering = "-title"
)

// ParseOrdering validates a client supplied ordering parameter.
func ParseOrdering(s string) (Ordering, bool) {
	switch o := Ordering(strings.TrimSpace(s)); o {
	case OrderByID, OrderByPrice, OrderByPriceDesc, OrderByTitle, OrderByTitleDesc:
		return o, true
	default:
		return "", false
	}
}

// ListFilter narrows a catalog listing. Zero values mean no constraint.
type ListFilter struct {
	// Search is a case-insensitive substring of the item title.
	Search string
	// Category is a category slug.
	Category string
	Ordering Ordering
}

// Repository defines read operations for the menu catalog.
type Repository interface {
	List(ctx context.Context, f ListFilter) ([]Item, error)
	GetByID(ctx context.Context, id int64) (*Item, error)
}
