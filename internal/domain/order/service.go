package order

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/littlelemon/internal/domain/auth"
)

// Confirmation is returned by a successful PlaceOrder.
type Confirmation struct {
	OrderID int64
	Total   decimal.Decimal
	Items   int
}

// Patch is the input of UpdateOrder. Zero fields are treated as absent.
type Patch struct {
	Status         Status
	DeliveryCrewID int64
	// DeliveryCrewIDErr reports a delivery_crew_id the caller sent but the
	// transport could not parse. It is returned only once the order exists
	// and the viewer may assign delivery crews.
	DeliveryCrewIDErr *ValidationError
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the sink for order events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithMeterProvider sets the provider for order metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithClock overrides the time source used for order dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the order engine: it turns carts into orders and applies the
// role rules for reading, updating and deleting them.
type Service struct {
	orders Repository
	dir    auth.Directory
	events Publisher

	meterProvider metric.MeterProvider
	metrics       *metrics
	now           func() time.Time
}

// NewService creates an order Service.
func NewService(orders Repository, dir auth.Directory, opts ...Option) (*Service, error) {
	s := &Service{
		orders: orders,
		dir:    dir,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	m, err := newMetrics(s.meterProvider)
	if err != nil {
		return nil, errors.Wrap(err, "order metrics")
	}
	s.metrics = m
	return s, nil
}

// PlaceOrder converts the user's cart into an order. Reading the cart,
// creating the order and its items, clearing the cart and storing the total
// happen in one transaction; on any failure nothing is written.
func (s *Service) PlaceOrder(ctx context.Context, user auth.Principal) (*Confirmation, error) {
	var placed *Order
	err := s.orders.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		lines, err := tx.LockCart(ctx, user.UserID)
		if err != nil {
			return errors.Wrap(err, "lock cart")
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		o := &Order{
			UserID: user.UserID,
			Status: StatusPending,
			Total:  decimal.Zero,
			Date:   s.now().UTC(),
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}

		items := make([]Item, len(lines))
		for i, l := range lines {
			items[i] = Item{
				OrderID:   o.ID,
				MenuItem:  l.Item,
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice,
				Price:     l.Price,
			}
		}
		if err := tx.InsertItems(ctx, items); err != nil {
			return errors.Wrap(err, "insert order items")
		}

		if _, err := tx.ClearCart(ctx, user.UserID); err != nil {
			return errors.Wrap(err, "clear cart")
		}

		total := decimal.Zero
		for _, it := range items {
			total = total.Add(it.Price)
		}
		if err := tx.SetTotal(ctx, o.ID, total); err != nil {
			return errors.Wrap(err, "set order total")
		}

		o.Total = total
		o.Items = items
		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.recordPlaced(ctx, placed)
	s.publish(ctx, EventPlaced, placed)
	zctx.From(ctx).Info("Order placed",
		zap.Int64("order_id", placed.ID),
		zap.Int64("user_id", placed.UserID),
		zap.Int("items", len(placed.Items)),
		zap.String("total", placed.Total.StringFixed(2)),
	)

	return &Confirmation{
		OrderID: placed.ID,
		Total:   placed.Total,
		Items:   len(placed.Items),
	}, nil
}

// ListOrders returns the orders visible to viewer: every order for a manager,
// the orders assigned to a delivery crew member, and the viewer's own orders
// otherwise.
func (s *Service) ListOrders(ctx context.Context, viewer auth.Principal, f ListFilter) ([]Order, error) {
	isManager, err := s.dir.HasRole(ctx, viewer.UserID, auth.RoleManager)
	if err != nil {
		return nil, errors.Wrap(err, "check manager role")
	}

	if f.Ordering == "" {
		f.Ordering = OrderByDateDesc
	}
	q := Query{ListFilter: f}
	if !isManager {
		isCrew, err := s.dir.HasRole(ctx, viewer.UserID, auth.RoleDeliveryCrew)
		if err != nil {
			return nil, errors.Wrap(err, "check delivery crew role")
		}
		if isCrew {
			q.AssignedTo = viewer.UserID
		} else {
			q.PlacedBy = viewer.UserID
		}
	}

	orders, err := s.orders.List(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if !isManager {
		for i := range orders {
			orders[i].Placer = nil
		}
	}
	return orders, nil
}

// GetOrder returns one of the viewer's own orders. Orders placed by someone
// else are reported as ErrNotFound.
func (s *Service) GetOrder(ctx context.Context, id int64, viewer auth.Principal) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	if o.UserID != viewer.UserID {
		return nil, ErrNotFound
	}

	if err := s.redact(ctx, o, viewer); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateOrder applies p to the order. Delivery crew members may only change
// the status, which is then required. Managers may assign a delivery crew
// member and change the status, both optional. Everyone else gets
// ErrForbidden. A delivery crew member who is also a manager is treated as
// delivery crew.
func (s *Service) UpdateOrder(ctx context.Context, id int64, viewer auth.Principal, p Patch) (*Order, error) {
	if _, err := s.orders.GetByID(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}

	isCrew, err := s.dir.HasRole(ctx, viewer.UserID, auth.RoleDeliveryCrew)
	if err != nil {
		return nil, errors.Wrap(err, "check delivery crew role")
	}

	var (
		role   string
		change Change
	)
	switch {
	case isCrew:
		role = string(auth.RoleDeliveryCrew)
		status, err := normalizeStatus(p.Status)
		if err != nil {
			return nil, err
		}
		if status == "" {
			return nil, &ValidationError{Field: "status", Reason: "status is required"}
		}
		change.Status = status
	default:
		isManager, err := s.dir.HasRole(ctx, viewer.UserID, auth.RoleManager)
		if err != nil {
			return nil, errors.Wrap(err, "check manager role")
		}
		if !isManager {
			return nil, ErrForbidden
		}
		role = string(auth.RoleManager)

		if p.DeliveryCrewIDErr != nil {
			return nil, p.DeliveryCrewIDErr
		}
		if p.DeliveryCrewID < 0 {
			return nil, &ValidationError{Field: "delivery_crew_id", Reason: "must be a positive user id"}
		}
		if p.DeliveryCrewID != 0 {
			crew, err := s.dir.ResolveUserByIDAndRole(ctx, p.DeliveryCrewID, auth.RoleDeliveryCrew)
			if err != nil {
				if errors.Is(err, auth.ErrUserNotFound) {
					return nil, &DeliveryCrewNotFoundError{UserID: p.DeliveryCrewID}
				}
				return nil, errors.Wrap(err, "resolve delivery crew")
			}
			change.DeliveryCrewID = crew.ID
		}

		status, err := normalizeStatus(p.Status)
		if err != nil {
			return nil, err
		}
		change.Status = status
	}

	o, err := s.orders.Update(ctx, id, change)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "update order")
	}

	s.metrics.recordUpdated(ctx, role)
	s.publish(ctx, EventUpdated, o)
	zctx.From(ctx).Info("Order updated",
		zap.Int64("order_id", o.ID),
		zap.Int64("by", viewer.UserID),
		zap.String("role", role),
		zap.String("status", string(o.Status)),
	)

	if err := s.redact(ctx, o, viewer); err != nil {
		return nil, err
	}
	return o, nil
}

// DeleteOrder removes an order and its items. Only managers may delete; the
// lookup is not restricted to the caller's own orders. It returns the number
// of rows removed.
func (s *Service) DeleteOrder(ctx context.Context, id int64, viewer auth.Principal) (int64, error) {
	isManager, err := s.dir.HasRole(ctx, viewer.UserID, auth.RoleManager)
	if err != nil {
		return 0, errors.Wrap(err, "check manager role")
	}
	if !isManager {
		return 0, ErrUnauthorized
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, errors.Wrap(err, "get order")
	}

	n, err := s.orders.Delete(ctx, id)
	if err != nil {
		return 0, errors.Wrap(err, "delete order")
	}
	if n == 0 {
		return 0, ErrNotFound
	}

	s.metrics.recordDeleted(ctx)
	s.publish(ctx, EventDeleted, o)
	zctx.From(ctx).Info("Order deleted",
		zap.Int64("order_id", id),
		zap.Int64("by", viewer.UserID),
		zap.Int64("rows", n),
	)
	return n, nil
}

// redact clears the placer unless viewer is a manager.
func (s *Service) redact(ctx context.Context, o *Order, viewer auth.Principal) error {
	isManager, err := s.dir.HasRole(ctx, viewer.UserID, auth.RoleManager)
	if err != nil {
		return errors.Wrap(err, "check manager role")
	}
	if !isManager {
		o.Placer = nil
	}
	return nil
}

// publish emits an event for o. Delivery failures are logged only: the
// change is already committed.
func (s *Service) publish(ctx context.Context, t EventType, o *Order) {
	if s.events == nil {
		return
	}
	e := Event{
		ID:      uuid.New().String(),
		Type:    t,
		OrderID: o.ID,
		UserID:  o.UserID,
		Status:  o.Status,
		Total:   o.Total,
		At:      s.now().UTC(),
	}
	if o.DeliveryCrew != nil {
		e.DeliveryCrewID = o.DeliveryCrew.ID
	}
	if err := s.events.Publish(ctx, e); err != nil {
		zctx.From(ctx).Warn("Publish order event",
			zap.String("type", string(t)),
			zap.Int64("order_id", o.ID),
			zap.Error(err),
		)
	}
}

func normalizeStatus(s Status) (Status, error) {
	v := strings.TrimSpace(string(s))
	if utf8.RuneCountInString(v) > MaxStatusLen {
		return "", &ValidationError{Field: "status", Reason: "status is too long"}
	}
	return Status(v), nil
}
