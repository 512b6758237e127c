// Package handler exposes the ordering API over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/xenking/littlelemon/internal/domain/auth"
	"github.com/xenking/littlelemon/internal/domain/cart"
	"github.com/xenking/littlelemon/internal/domain/menu"
	"github.com/xenking/littlelemon/internal/domain/order"
)

// Handler serves the /api routes, delegating to the domain services.
type Handler struct {
	auth   *auth.Service
	menu   menu.Repository
	carts  *cart.Service
	orders *order.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	authService *auth.Service,
	catalog menu.Repository,
	cartService *cart.Service,
	orderService *order.Service,
) *Handler {
	return &Handler{
		auth:   authService,
		menu:   catalog,
		carts:  cartService,
		orders: orderService,
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/token", h.IssueToken).Methods(http.MethodPost)

	api.HandleFunc("/menu-items", h.ListMenuItems).Methods(http.MethodGet)
	api.HandleFunc("/menu-items/{id:[0-9]+}", h.GetMenuItem).Methods(http.MethodGet)

	api.HandleFunc("/cart/menu-items", h.RequireUser(h.ListCart)).Methods(http.MethodGet)
	api.HandleFunc("/cart/menu-items", h.RequireUser(h.AddToCart)).Methods(http.MethodPost)
	api.HandleFunc("/cart/menu-items", h.RequireUser(h.ClearCart)).Methods(http.MethodDelete)

	api.HandleFunc("/orders", h.RequireUser(h.ListOrders)).Methods(http.MethodGet)
	api.HandleFunc("/orders", h.RequireUser(h.PlaceOrder)).Methods(http.MethodPost)
	api.HandleFunc("/orders/{orderId:[0-9]+}", h.RequireUser(h.GetOrder)).Methods(http.MethodGet)
	api.HandleFunc("/orders/{orderId:[0-9]+}", h.RequireUser(h.UpdateOrder)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/orders/{orderId:[0-9]+}", h.RequireUser(h.DeleteOrder)).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeAPIError(w, apiError{Code: http.StatusNotFound, Message: "Not found."})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, apiError{
			Code:    http.StatusMethodNotAllowed,
			Message: `Method "` + r.Method + `" not allowed.`,
		})
	})
}

// pathID reads a numeric path variable. The route patterns only admit
// digits, so the only failure is overflow, reported as not found.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}
