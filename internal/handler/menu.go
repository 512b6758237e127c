package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/littlelemon/internal/domain/menu"
)

// ListMenuItems returns the catalog, optionally filtered by ?search= and
// ?category= and sorted by ?ordering=.
func (h *Handler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ordering, ok := menu.ParseOrdering(q.Get("ordering"))
	if !ok {
		writeError(w, r, &badRequestError{Field: "ordering", Reason: "must be one of price, -price, title, -title"})
		return
	}

	items, err := h.menu.List(r.Context(), menu.ListFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		Category: strings.TrimSpace(q.Get("category")),
		Ordering: ordering,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeArray(w, items, encodeMenuItem)
}

// GetMenuItem returns a single menu item.
func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, menu.ErrNotFound)
		return
	}

	it, err := h.menu.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeMenuItem(e, *it) })
}
