package events

import (
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/littlelemon/internal/domain/order"
)

func TestEncode(t *testing.T) {
	at := time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		e    order.Event
		want string
	}{
		{
			name: "placed",
			e: order.Event{
				ID: "e1", Type: order.EventPlaced, OrderID: 10, UserID: 3,
				Status: order.StatusPending, Total: decimal.RequireFromString("12.5"), At: at,
			},
			want: `{"id":"e1","type":"order.placed","order_id":10,"user_id":3,"status":"pending",` +
				`"delivery_crew_id":null,"total":"12.50","at":"2026-05-01T18:30:00Z"}`,
		},
		{
			name: "assigned",
			e: order.Event{
				ID: "e2", Type: order.EventUpdated, OrderID: 10, UserID: 3, DeliveryCrewID: 7,
				Status: "out for delivery", Total: decimal.RequireFromString("12.50"), At: at,
			},
			want: `{"id":"e2","type":"order.updated","order_id":10,"user_id":3,"status":"out for delivery",` +
				`"delivery_crew_id":7,"total":"12.50","at":"2026-05-01T18:30:00Z"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.e)
			require.True(t, jx.Valid(got))
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestNewKafka_NoBrokers(t *testing.T) {
	_, err := NewKafka(nil, "")
	require.Error(t, err)
}
