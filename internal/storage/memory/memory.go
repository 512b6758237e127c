// Package memory implements the domain repositories in process memory. It
// backs the "memory" storage driver and the handler and engine tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/littlelemon/internal/domain/auth"
	"github.com/xenking/littlelemon/internal/domain/cart"
	"github.com/xenking/littlelemon/internal/domain/menu"
	"github.com/xenking/littlelemon/internal/domain/order"
)

type userRecord struct {
	auth.User
	passwordHash string
	roles        map[auth.Role]struct{}
}

type orderRecord struct {
	id     int64
	userID int64
	crewID int64
	status order.Status
	total  decimal.Decimal
	date   time.Time
	items  []order.Item
}

type state struct {
	users      map[int64]*userRecord
	byName     map[string]int64
	categories map[int64]menu.Category
	items      map[int64]menu.Item
	lines      []cart.Line
	orders     map[int64]*orderRecord
	seq        int64
}

func (s *state) next() int64 {
	s.seq++
	return s.seq
}

// clone copies everything a placement writes. Users and menu items are only
// written by the seeding helpers, which never run inside a transaction.
func (s *state) clone() *state {
	c := *s
	c.lines = slices.Clone(s.lines)
	c.orders = make(map[int64]*orderRecord, len(s.orders))
	for id, o := range s.orders {
		c.orders[id] = o
	}
	return &c
}

// Store is a mutex guarded in-memory database.
type Store struct {
	mu sync.Mutex
	st *state
}

// New returns an empty Store.
func New() *Store {
	return &Store{st: &state{
		users:      make(map[int64]*userRecord),
		byName:     make(map[string]int64),
		categories: make(map[int64]menu.Category),
		items:      make(map[int64]menu.Item),
		orders:     make(map[int64]*orderRecord),
	}}
}

// AddCategory stores a category and returns it with its ID.
func (s *Store) AddCategory(slug, title string) menu.Category {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := menu.Category{ID: s.st.next(), Slug: slug, Title: title}
	s.st.categories[c.ID] = c
	return c
}

// AddMenuItem stores a menu item in the given category.
func (s *Store) AddMenuItem(title string, price decimal.Decimal, featured bool, categoryID int64) (menu.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.st.categories[categoryID]
	if !ok {
		return menu.Item{}, errors.Errorf("category %d not found", categoryID)
	}
	it := menu.Item{ID: s.st.next(), Title: title, Price: price, Featured: featured, Category: c}
	s.st.items[it.ID] = it
	return it, nil
}

// AddUser stores a user with the given bcrypt hash and group memberships.
func (s *Store) AddUser(username, email, passwordHash string, roles ...auth.Role) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.byName[username]; ok {
		return auth.User{}, errors.Errorf("user %q already exists", username)
	}
	u := &userRecord{
		User:         auth.User{ID: s.st.next(), Username: username, Email: email},
		passwordHash: passwordHash,
		roles:        make(map[auth.Role]struct{}, len(roles)),
	}
	for _, r := range roles {
		u.roles[r] = struct{}{}
	}
	s.st.users[u.ID] = u
	s.st.byName[username] = u.ID
	return u.User, nil
}

// Menu returns the menu.Repository view of the store.
func (s *Store) Menu() *MenuRepository { return &MenuRepository{s: s} }

// Carts returns the cart.Repository view of the store.
func (s *Store) Carts() *CartRepository { return &CartRepository{s: s} }

// Orders returns the order.Repository view of the store.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// Users returns the auth.Directory and auth.CredentialStore view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

var _ menu.Repository = (*MenuRepository)(nil)

// MenuRepository implements menu.Repository.
type MenuRepository struct{ s *Store }

// List returns the menu items matching f.
func (r *MenuRepository) List(_ context.Context, f menu.ListFilter) ([]menu.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(f.Search)
	out := make([]menu.Item, 0, len(r.s.st.items))
	for _, it := range r.s.st.items {
		if search != "" && !strings.Contains(strings.ToLower(it.Title), search) {
			continue
		}
		if f.Category != "" && it.Category.Slug != f.Category {
			continue
		}
		out = append(out, it)
	}

	slices.SortFunc(out, func(a, b menu.Item) int {
		var c int
		switch f.Ordering {
		case menu.OrderByPrice:
			c = a.Price.Cmp(b.Price)
		case menu.OrderByPriceDesc:
			c = b.Price.Cmp(a.Price)
		case menu.OrderByTitle:
			c = strings.Compare(a.Title, b.Title)
		case menu.OrderByTitleDesc:
			c = strings.Compare(b.Title, a.Title)
		}
		return cmp.Or(c, cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// GetByID returns a menu item or menu.ErrNotFound.
func (r *MenuRepository) GetByID(_ context.Context, id int64) (*menu.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	it, ok := r.s.st.items[id]
	if !ok {
		return nil, menu.ErrNotFound
	}
	return &it, nil
}

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository.
type CartRepository struct{ s *Store }

// Add appends a cart line and sets its ID.
func (r *CartRepository) Add(_ context.Context, l *cart.Line) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l.ID = r.s.st.next()
	r.s.st.lines = append(r.s.st.lines, *l)
	return nil
}

// List returns the user's cart lines in insertion order.
func (r *CartRepository) List(_ context.Context, userID int64) ([]cart.Line, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return userLines(r.s.st, userID), nil
}

// Clear removes the user's cart lines.
func (r *CartRepository) Clear(_ context.Context, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return clearLines(r.s.st, userID), nil
}

func userLines(st *state, userID int64) []cart.Line {
	var out []cart.Line
	for _, l := range st.lines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out
}

func clearLines(st *state, userID int64) int64 {
	before := len(st.lines)
	st.lines = slices.DeleteFunc(st.lines, func(l cart.Line) bool { return l.UserID == userID })
	return int64(before - len(st.lines))
}

var (
	_ auth.Directory       = (*UserRepository)(nil)
	_ auth.CredentialStore = (*UserRepository)(nil)
)

// UserRepository implements auth.Directory and auth.CredentialStore.
type UserRepository struct{ s *Store }

// HasRole reports whether the user belongs to role. Unknown users have no
// roles.
func (r *UserRepository) HasRole(_ context.Context, userID int64, role auth.Role) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.st.users[userID]
	if !ok {
		return false, nil
	}
	_, ok = u.roles[role]
	return ok, nil
}

// ResolveUserByIDAndRole returns the user if they exist and belong to role.
func (r *UserRepository) ResolveUserByIDAndRole(_ context.Context, id int64, role auth.Role) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.st.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	if _, ok := u.roles[role]; !ok {
		return nil, auth.ErrUserNotFound
	}
	user := u.User
	return &user, nil
}

// FindCredentials returns the user's password hash.
func (r *UserRepository) FindCredentials(_ context.Context, username string) (*auth.Credentials, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.st.byName[username]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	u := r.s.st.users[id]
	return &auth.Credentials{User: u.User, PasswordHash: u.passwordHash}, nil
}
