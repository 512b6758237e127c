package handler

import (
	"math"
	"net/http"

	"github.com/go-faster/jx"
)

// ListCart returns the caller's cart lines.
func (h *Handler) ListCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.carts.ListLines(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeArray(w, lines, encodeCartLine)
}

// AddToCart appends {"menu_item_id", "quantity"} to the caller's cart.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	itemID, ok, err := f.int64("menu_item_id")
	if err == nil && !ok {
		err = &badRequestError{Field: "menu_item_id", Reason: "This field is required."}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	qty, ok, err := f.int64("quantity")
	if err == nil && !ok {
		err = &badRequestError{Field: "quantity", Reason: "This field is required."}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if qty < math.MinInt32 || qty > math.MaxInt32 {
		writeError(w, r, &badRequestError{Field: "quantity", Reason: "out of range"})
		return
	}

	line, err := h.carts.AddLine(r.Context(), principal(r), itemID, int(qty))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCartLine(e, *line) })
}

// ClearCart removes every line from the caller's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	n, err := h.carts.ClearAll(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDeleted(w, n)
}

func writeDeleted(w http.ResponseWriter, n int64) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("deleted")
		e.Int64(n)
		e.ObjEnd()
	})
}
