// Package seed loads reference data (categories, menu items, staff and
// customer accounts) from JSON files and writes it through a Sink.
//
// A seed file looks like:
//
//	{
//	  "categories": [{"slug": "mains", "title": "Mains"}],
//	  "menu_items": [{"title": "Greek Salad", "price": "12.50", "featured": true, "category": "mains"}],
//	  "users": [{"username": "mario", "email": "mario@littlelemon.test", "password": "…", "groups": ["Manager"]}]
//	}
//
// Files ending in .gz are gzip compressed.
package seed

import (
	"context"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/littlelemon/internal/domain/auth"
	"github.com/xenking/littlelemon/internal/domain/menu"
)

// Category is a seeded menu category.
type Category struct {
	Slug  string
	Title string
}

// MenuItem is a seeded menu item. Category is a category slug.
type MenuItem struct {
	Title    string
	Price    decimal.Decimal
	Featured bool
	Category string
}

// User is a seeded account with a plain text password.
type User struct {
	Username string
	Email    string
	Password string
	Groups   []auth.Role
}

// Catalog is the content of one or more seed files.
type Catalog struct {
	Categories []Category
	MenuItems  []MenuItem
	Users      []User
}

// Sink receives upserts. Both storage drivers implement it.
type Sink interface {
	UpsertCategory(ctx context.Context, slug, title string) (int64, error)
	UpsertMenuItem(ctx context.Context, title string, price decimal.Decimal, featured bool, categoryID int64) (int64, error)
	UpsertUser(ctx context.Context, username, email, passwordHash string) (int64, error)
	AddUserToGroup(ctx context.Context, userID int64, role auth.Role) error
}

// Stats counts what Merge and Apply did.
type Stats struct {
	Categories int
	MenuItems  int
	Users      int
	Duplicates int
}

// Merge concatenates catalogs, keeping the first occurrence of every
// category slug, menu item title and username.
func Merge(parts ...*Catalog) (*Catalog, int) {
	var n int
	for _, p := range parts {
		n += len(p.MenuItems)
	}
	titles := bloom.NewWithEstimates(uint(max(n, 1)), 0.001)
	seenTitles := make(map[string]struct{}, n)

	out := &Catalog{}
	slugs := make(map[string]struct{})
	users := make(map[string]struct{})
	var dups int

	for _, p := range parts {
		for _, c := range p.Categories {
			if _, ok := slugs[c.Slug]; ok {
				dups++
				continue
			}
			slugs[c.Slug] = struct{}{}
			out.Categories = append(out.Categories, c)
		}
		for _, it := range p.MenuItems {
			// The filter has no false negatives: a miss is definitely new
			// and skips the map lookup.
			if titles.TestAndAddString(it.Title) {
				if _, ok := seenTitles[it.Title]; ok {
					dups++
					continue
				}
			}
			seenTitles[it.Title] = struct{}{}
			out.MenuItems = append(out.MenuItems, it)
		}
		for _, u := range p.Users {
			if _, ok := users[u.Username]; ok {
				dups++
				continue
			}
			users[u.Username] = struct{}{}
			out.Users = append(out.Users, u)
		}
	}
	return out, dups
}

// Apply writes c through sink. Passwords are hashed with hash.
func Apply(ctx context.Context, sink Sink, c *Catalog, hash func(string) (string, error)) (Stats, error) {
	lg := zctx.From(ctx)
	var st Stats

	categories := make(map[string]int64, len(c.Categories))
	for _, cat := range c.Categories {
		id, err := sink.UpsertCategory(ctx, cat.Slug, cat.Title)
		if err != nil {
			return st, errors.Wrapf(err, "category %q", cat.Slug)
		}
		categories[cat.Slug] = id
		st.Categories++
	}

	for _, it := range c.MenuItems {
		catID, ok := categories[it.Category]
		if !ok {
			return st, errors.Errorf("menu item %q: unknown category %q", it.Title, it.Category)
		}
		if !it.Price.IsPositive() {
			return st, errors.Errorf("menu item %q: price must be positive", it.Title)
		}
		if it.Price.Round(2).GreaterThan(menu.MaxPrice) {
			return st, errors.Errorf("menu item %q: price exceeds %s", it.Title, menu.MaxPrice)
		}
		if _, err := sink.UpsertMenuItem(ctx, it.Title, it.Price.Round(2), it.Featured, catID); err != nil {
			return st, errors.Wrapf(err, "menu item %q", it.Title)
		}
		st.MenuItems++
	}

	for _, u := range c.Users {
		h, err := hash(u.Password)
		if err != nil {
			return st, errors.Wrapf(err, "hash password of %q", u.Username)
		}
		id, err := sink.UpsertUser(ctx, u.Username, u.Email, h)
		if err != nil {
			return st, errors.Wrapf(err, "user %q", u.Username)
		}
		for _, g := range u.Groups {
			if err := sink.AddUserToGroup(ctx, id, g); err != nil {
				return st, errors.Wrapf(err, "add %q to %q", u.Username, g)
			}
		}
		st.Users++
		lg.Debug("Seeded user", zap.String("username", u.Username), zap.Int("groups", len(u.Groups)))
	}

	return st, nil
}
