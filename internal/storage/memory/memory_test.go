package memory

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/littlelemon/internal/domain/auth"
	"github.com/xenking/littlelemon/internal/domain/cart"
	"github.com/xenking/littlelemon/internal/domain/menu"
	"github.com/xenking/littlelemon/internal/domain/order"
)

func seedMenu(t *testing.T, s *Store) (menu.Item, menu.Item, menu.Item) {
	t.Helper()
	mains := s.AddCategory("mains", "Mains")
	desserts := s.AddCategory("desserts", "Desserts")

	pasta, err := s.AddMenuItem("Pasta", decimal.RequireFromString("9.00"), false, mains.ID)
	require.NoError(t, err)
	bruschetta, err := s.AddMenuItem("Bruschetta", decimal.RequireFromString("5.25"), true, mains.ID)
	require.NoError(t, err)
	cake, err := s.AddMenuItem("Lemon Cake", decimal.RequireFromString("6.75"), false, desserts.ID)
	require.NoError(t, err)
	return pasta, bruschetta, cake
}

func TestMenuRepository_List(t *testing.T) {
	ctx := context.Background()
	s := New()
	pasta, bruschetta, cake := seedMenu(t, s)

	ids := func(items []menu.Item) []int64 {
		out := make([]int64, len(items))
		for i, it := range items {
			out[i] = it.ID
		}
		return out
	}

	tests := []struct {
		name   string
		filter menu.ListFilter
		want   []int64
	}{
		{name: "all by id", filter: menu.ListFilter{}, want: []int64{pasta.ID, bruschetta.ID, cake.ID}},
		{name: "by price", filter: menu.ListFilter{Ordering: menu.OrderByPrice}, want: []int64{bruschetta.ID, cake.ID, pasta.ID}},
		{name: "by title desc", filter: menu.ListFilter{Ordering: menu.OrderByTitleDesc}, want: []int64{pasta.ID, cake.ID, bruschetta.ID}},
		{name: "category", filter: menu.ListFilter{Category: "desserts"}, want: []int64{cake.ID}},
		{name: "search is case insensitive", filter: menu.ListFilter{Search: "LEMON"}, want: []int64{cake.ID}},
		{name: "no match", filter: menu.ListFilter{Search: "sushi"}, want: []int64{}},
	}

	r := s.Menu()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	_, err := r.GetByID(ctx, 999)
	require.ErrorIs(t, err, menu.ErrNotFound)
}

func TestOrderRepository_WithinTxRollback(t *testing.T) {
	ctx := context.Background()
	s := New()
	pasta, _, _ := seedMenu(t, s)
	u, err := s.AddUser("alice", "", "x")
	require.NoError(t, err)

	require.NoError(t, s.Carts().Add(ctx, &cart.Line{
		UserID: u.ID, Item: pasta, Quantity: 1, UnitPrice: pasta.Price, Price: pasta.Price,
	}))

	boom := errors.New("boom")
	err = s.Orders().WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
		o := &order.Order{UserID: u.ID, Status: order.StatusPending}
		require.NoError(t, tx.CreateOrder(ctx, o))
		_, err := tx.LockCart(ctx, u.ID)
		require.NoError(t, err)
		n, err := tx.ClearCart(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return boom
	})
	require.ErrorIs(t, err, boom)

	lines, err := s.Carts().List(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	orders, err := s.Orders().List(ctx, order.Query{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderTx_ClearCartKeepsLaterLines(t *testing.T) {
	ctx := context.Background()
	s := New()
	pasta, _, cake := seedMenu(t, s)
	u, err := s.AddUser("alice", "", "x")
	require.NoError(t, err)

	require.NoError(t, s.Carts().Add(ctx, &cart.Line{
		UserID: u.ID, Item: pasta, Quantity: 1, UnitPrice: pasta.Price, Price: pasta.Price,
	}))

	err = s.Orders().WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
		locked, err := tx.LockCart(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, locked, 1)

		// A line that shows up after the lock is not part of this placement.
		st := tx.(*orderTx).st
		st.lines = append(st.lines, cart.Line{
			ID: st.next(), UserID: u.ID, Item: cake, Quantity: 2, UnitPrice: cake.Price, Price: cake.Price.Mul(decimal.NewFromInt(2)),
		})

		n, err := tx.ClearCart(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return nil
	})
	require.NoError(t, err)

	lines, err := s.Carts().List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, cake.ID, lines[0].Item.ID)
}

func TestOrderRepository_UpdateWritesOnlyChangedFields(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedMenu(t, s)
	u, err := s.AddUser("alice", "", "x")
	require.NoError(t, err)
	crew, err := s.AddUser("mario", "", "x", auth.RoleDeliveryCrew)
	require.NoError(t, err)

	var id int64
	require.NoError(t, s.Orders().WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
		o := &order.Order{UserID: u.ID, Status: order.StatusPending}
		err := tx.CreateOrder(ctx, o)
		id = o.ID
		return err
	}))

	r := s.Orders()
	o, err := r.Update(ctx, id, order.Change{DeliveryCrewID: crew.ID})
	require.NoError(t, err)
	require.NotNil(t, o.DeliveryCrew)
	assert.Equal(t, order.StatusPending, o.Status)

	o, err = r.Update(ctx, id, order.Change{Status: "out for delivery"})
	require.NoError(t, err)
	assert.Equal(t, order.Status("out for delivery"), o.Status)
	require.NotNil(t, o.DeliveryCrew, "a status change keeps the assignment")
	assert.Equal(t, crew.ID, o.DeliveryCrew.ID)

	_, err = r.Update(ctx, id+100, order.Change{Status: "x"})
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	s := New()
	crew, err := s.AddUser("adrian", "adrian@littlelemon.test", "hash", auth.RoleDeliveryCrew)
	require.NoError(t, err)
	_, err = s.AddUser("adrian", "", "hash")
	require.Error(t, err)

	r := s.Users()

	ok, err := r.HasRole(ctx, crew.ID, auth.RoleDeliveryCrew)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.HasRole(ctx, crew.ID, auth.RoleManager)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.HasRole(ctx, 12345, auth.RoleManager)
	require.NoError(t, err)
	assert.False(t, ok)

	u, err := r.ResolveUserByIDAndRole(ctx, crew.ID, auth.RoleDeliveryCrew)
	require.NoError(t, err)
	assert.Equal(t, "adrian", u.Username)

	_, err = r.ResolveUserByIDAndRole(ctx, crew.ID, auth.RoleManager)
	require.ErrorIs(t, err, auth.ErrUserNotFound)

	c, err := r.FindCredentials(ctx, "adrian")
	require.NoError(t, err)
	assert.Equal(t, "hash", c.PasswordHash)

	_, err = r.FindCredentials(ctx, "nobody")
	require.ErrorIs(t, err, auth.ErrUserNotFound)
}
