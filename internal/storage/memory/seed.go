package memory

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/littlelemon/internal/domain/auth"
	"github.com/xenking/littlelemon/internal/domain/menu"
)

// Seeder upserts reference data, keyed like the postgres unique indexes:
// categories by slug, menu items by title and users by username.
type Seeder struct{ s *Store }

// Seeder returns the seed.Sink view of the store.
func (s *Store) Seeder() *Seeder { return &Seeder{s: s} }

// UpsertCategory creates or renames the category with slug.
func (w *Seeder) UpsertCategory(_ context.Context, slug, title string) (int64, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	st := w.s.st
	for id, c := range st.categories {
		if c.Slug == slug {
			c.Title = title
			st.categories[id] = c
			for itemID, it := range st.items {
				if it.Category.ID == id {
					it.Category = c
					st.items[itemID] = it
				}
			}
			return id, nil
		}
	}
	c := menu.Category{ID: st.next(), Slug: slug, Title: title}
	st.categories[c.ID] = c
	return c.ID, nil
}

// UpsertMenuItem creates or updates the menu item with title.
func (w *Seeder) UpsertMenuItem(_ context.Context, title string, price decimal.Decimal, featured bool, categoryID int64) (int64, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	st := w.s.st
	c, ok := st.categories[categoryID]
	if !ok {
		return 0, errors.Errorf("category %d not found", categoryID)
	}
	id := int64(0)
	for itemID, it := range st.items {
		if it.Title == title {
			id = itemID
			break
		}
	}
	if id == 0 {
		id = st.next()
	}
	st.items[id] = menu.Item{ID: id, Title: title, Price: price, Featured: featured, Category: c}
	return id, nil
}

// UpsertUser creates the user or replaces their email and password hash.
func (w *Seeder) UpsertUser(_ context.Context, username, email, passwordHash string) (int64, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	st := w.s.st
	if id, ok := st.byName[username]; ok {
		u := st.users[id]
		u.Email = email
		u.passwordHash = passwordHash
		return id, nil
	}
	u := &userRecord{
		User:         auth.User{ID: st.next(), Username: username, Email: email},
		passwordHash: passwordHash,
		roles:        make(map[auth.Role]struct{}),
	}
	st.users[u.ID] = u
	st.byName[username] = u.ID
	return u.ID, nil
}

// AddUserToGroup grants role to the user. Granting twice is a no-op.
func (w *Seeder) AddUserToGroup(_ context.Context, userID int64, role auth.Role) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	u, ok := w.s.st.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.roles[role] = struct{}{}
	return nil
}
