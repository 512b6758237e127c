package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/littlelemon/internal/domain/cart"
	"github.com/xenking/littlelemon/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository.
type OrderRepository struct{ s *Store }

// WithinTx runs fn against a private copy of the store and publishes the copy
// only if fn succeeds. The store lock is held for the whole call, so
// placements are serialized.
func (r *OrderRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := r.s.st.clone()
	if err := fn(ctx, &orderTx{st: work}); err != nil {
		return err
	}
	r.s.st = work
	return nil
}

// List returns the orders matching q.
func (r *OrderRepository) List(_ context.Context, q order.Query) ([]order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]order.Order, 0, len(r.s.st.orders))
	for _, rec := range r.s.st.orders {
		switch {
		case q.PlacedBy != 0 && rec.userID != q.PlacedBy:
			continue
		case q.AssignedTo != 0 && rec.crewID != q.AssignedTo:
			continue
		case q.Status != "" && rec.status != q.Status:
			continue
		}
		out = append(out, r.s.st.materialize(rec))
	}

	slices.SortFunc(out, func(a, b order.Order) int {
		switch q.Ordering {
		case order.OrderByDate:
			return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.ID, b.ID))
		case order.OrderByTotal:
			return cmp.Or(a.Total.Cmp(b.Total), cmp.Compare(a.ID, b.ID))
		case order.OrderByTotalDesc:
			return cmp.Or(b.Total.Cmp(a.Total), cmp.Compare(a.ID, b.ID))
		case order.OrderByStatus:
			return cmp.Or(strings.Compare(string(a.Status), string(b.Status)), cmp.Compare(a.ID, b.ID))
		case order.OrderByStatusDesc:
			return cmp.Or(strings.Compare(string(b.Status), string(a.Status)), cmp.Compare(a.ID, b.ID))
		default:
			return cmp.Or(b.Date.Compare(a.Date), cmp.Compare(b.ID, a.ID))
		}
	})
	return out, nil
}

// GetByID returns the order or order.ErrNotFound.
func (r *OrderRepository) GetByID(_ context.Context, id int64) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.st.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o := r.s.st.materialize(rec)
	return &o, nil
}

// Update applies the non-zero fields of c and returns the stored order.
func (r *OrderRepository) Update(_ context.Context, id int64, c order.Change) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.st.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	upd := *rec
	if c.Status != "" {
		upd.status = c.Status
	}
	if c.DeliveryCrewID != 0 {
		upd.crewID = c.DeliveryCrewID
	}
	r.s.st.orders[id] = &upd
	o := r.s.st.materialize(&upd)
	return &o, nil
}

// Delete removes the order and reports the order row plus its item rows.
func (r *OrderRepository) Delete(_ context.Context, id int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.st.orders[id]
	if !ok {
		return 0, nil
	}
	delete(r.s.st.orders, id)
	return int64(len(rec.items)) + 1, nil
}

func (st *state) materialize(rec *orderRecord) order.Order {
	o := order.Order{
		ID:     rec.id,
		UserID: rec.userID,
		Status: rec.status,
		Total:  rec.total,
		Date:   rec.date,
		Items:  slices.Clone(rec.items),
	}
	if u, ok := st.users[rec.userID]; ok {
		placer := u.User
		o.Placer = &placer
	}
	if rec.crewID != 0 {
		if u, ok := st.users[rec.crewID]; ok {
			crew := u.User
			o.DeliveryCrew = &crew
		}
	}
	return o
}

// orderTx writes to a cloned state.
type orderTx struct {
	st     *state
	locked map[int64]struct{}
}

func (t *orderTx) LockCart(_ context.Context, userID int64) ([]cart.Line, error) {
	lines := userLines(t.st, userID)
	t.locked = make(map[int64]struct{}, len(lines))
	for _, l := range lines {
		t.locked[l.ID] = struct{}{}
	}
	return lines, nil
}

func (t *orderTx) CreateOrder(_ context.Context, o *order.Order) error {
	o.ID = t.st.next()
	t.st.orders[o.ID] = &orderRecord{
		id:     o.ID,
		userID: o.UserID,
		status: o.Status,
		total:  o.Total,
		date:   o.Date,
	}
	return nil
}

func (t *orderTx) InsertItems(_ context.Context, items []order.Item) error {
	for _, it := range items {
		rec, ok := t.st.orders[it.OrderID]
		if !ok {
			return order.ErrNotFound
		}
		it.ID = t.st.next()
		upd := *rec
		upd.items = append(slices.Clone(rec.items), it)
		t.st.orders[it.OrderID] = &upd
	}
	return nil
}

func (t *orderTx) ClearCart(_ context.Context, userID int64) (int64, error) {
	before := len(t.st.lines)
	t.st.lines = slices.DeleteFunc(t.st.lines, func(l cart.Line) bool {
		_, ok := t.locked[l.ID]
		return ok && l.UserID == userID
	})
	return int64(before - len(t.st.lines)), nil
}

func (t *orderTx) SetTotal(_ context.Context, orderID int64, total decimal.Decimal) error {
	rec, ok := t.st.orders[orderID]
	if !ok {
		return order.ErrNotFound
	}
	upd := *rec
	upd.total = total
	t.st.orders[orderID] = &upd
	return nil
}
