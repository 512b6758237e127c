package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/littlelemon/internal/domain/order"
)

// ListOrders returns the orders visible to the caller, optionally filtered
// by ?status= and sorted by ?ordering=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ordering, ok := order.ParseOrdering(q.Get("ordering"))
	if !ok {
		writeError(w, r, &badRequestError{
			Field:  "ordering",
			Reason: "must be one of date, -date, total, -total, status, -status",
		})
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), principal(r), order.ListFilter{
		Status:   order.Status(q.Get("status")),
		Ordering: ordering,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeArray(w, orders, encodeOrder)
}

// PlaceOrder turns the caller's cart into an order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	c, err := h.orders.PlaceOrder(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/orders/"+strconv.FormatInt(c.OrderID, 10))
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str("Order created successfully")
		e.FieldStart("order_id")
		e.Int64(c.OrderID)
		e.FieldStart("total")
		e.Str(c.Total.StringFixed(2))
		e.FieldStart("items")
		e.Int(c.Items)
		e.ObjEnd()
	})
}

// GetOrder returns one of the caller's own orders.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "orderId")
	if !ok {
		writeError(w, r, order.ErrNotFound)
		return
	}

	o, err := h.orders.GetOrder(r.Context(), id, principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, *o) })
}

// UpdateOrder applies {"status", "delivery_crew_id"} according to the
// caller's role. PUT and PATCH behave the same: absent fields are unchanged.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "orderId")
	if !ok {
		writeError(w, r, order.ErrNotFound)
		return
	}

	f, err := readFields(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := order.Patch{Status: order.Status(f.str("status"))}
	// The engine reports a malformed crew id only after the order lookup and
	// role checks.
	if crewID, _, err := f.int64("delivery_crew_id"); err != nil {
		p.DeliveryCrewIDErr = &order.ValidationError{Field: "delivery_crew_id", Reason: "must be an integer"}
	} else {
		p.DeliveryCrewID = crewID
	}

	o, err := h.orders.UpdateOrder(r.Context(), id, principal(r), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, *o) })
}

// DeleteOrder removes an order. Managers only.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "orderId")
	if !ok {
		writeError(w, r, order.ErrNotFound)
		return
	}

	n, err := h.orders.DeleteOrder(r.Context(), id, principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDeleted(w, n)
}
