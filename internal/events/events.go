// Package events delivers order lifecycle events to a message broker.
package events

import (
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/littlelemon/internal/domain/order"
)

// ContentType of encoded events.
const ContentType = "application/json"

// Encode renders e as a JSON object:
//
//	{"id":"…","type":"order.placed","order_id":1,"user_id":2,
//	 "status":"pending","delivery_crew_id":null,"total":"12.50","at":"…"}
func Encode(e order.Event) []byte {
	var w jx.Encoder
	w.ObjStart()
	w.FieldStart("id")
	w.Str(e.ID)
	w.FieldStart("type")
	w.Str(string(e.Type))
	w.FieldStart("order_id")
	w.Int64(e.OrderID)
	w.FieldStart("user_id")
	w.Int64(e.UserID)
	w.FieldStart("status")
	w.Str(string(e.Status))
	w.FieldStart("delivery_crew_id")
	if e.DeliveryCrewID != 0 {
		w.Int64(e.DeliveryCrewID)
	} else {
		w.Null()
	}
	w.FieldStart("total")
	w.Str(e.Total.StringFixed(2))
	w.FieldStart("at")
	w.Str(e.At.UTC().Format(time.RFC3339Nano))
	w.ObjEnd()
	return w.Bytes()
}
