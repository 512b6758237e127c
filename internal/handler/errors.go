package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/littlelemon/internal/domain/auth"
	"github.com/xenking/littlelemon/internal/domain/cart"
	"github.com/xenking/littlelemon/internal/domain/menu"
	"github.com/xenking/littlelemon/internal/domain/order"
)

// apiError is the body of every non-2xx response.
type apiError struct {
	Code    int
	Message string
	Field   string
}

// classify maps domain errors to HTTP errors. Anything unrecognised is a 500
// whose cause is logged, not returned.
func classify(err error) (apiError, bool) {
	var (
		validation *order.ValidationError
		badRequest *badRequestError
		quantity   *cart.InvalidQuantityError
		noItem     *cart.MenuItemNotFoundError
		noCrew     *order.DeliveryCrewNotFoundError
	)
	switch {
	case errors.As(err, &validation):
		return apiError{Code: http.StatusBadRequest, Message: validation.Reason, Field: validation.Field}, true
	case errors.As(err, &badRequest):
		return apiError{Code: http.StatusBadRequest, Message: badRequest.Reason, Field: badRequest.Field}, true
	case errors.As(err, &quantity):
		return apiError{Code: http.StatusBadRequest, Message: quantity.Error(), Field: "quantity"}, true
	case errors.Is(err, order.ErrEmptyCart):
		return apiError{Code: http.StatusBadRequest, Message: "Cart is empty"}, true
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apiError{Code: http.StatusBadRequest, Message: "Unable to log in with provided credentials."}, true
	case errors.Is(err, auth.ErrInvalidToken):
		return apiError{Code: http.StatusUnauthorized, Message: "Invalid token."}, true
	case errors.Is(err, order.ErrUnauthorized):
		return apiError{Code: http.StatusUnauthorized, Message: "Only managers may delete orders."}, true
	case errors.Is(err, order.ErrForbidden):
		return apiError{Code: http.StatusForbidden, Message: "You are not authorized to perform this action."}, true
	case errors.As(err, &noCrew):
		return apiError{Code: http.StatusNotFound, Message: "Delivery crew not found.", Field: "delivery_crew_id"}, true
	case errors.As(err, &noItem):
		return apiError{Code: http.StatusNotFound, Message: noItem.Error(), Field: "menu_item_id"}, true
	case errors.Is(err, menu.ErrNotFound):
		return apiError{Code: http.StatusNotFound, Message: "Menu item not found."}, true
	case errors.Is(err, order.ErrNotFound):
		return apiError{Code: http.StatusNotFound, Message: "You have no order with this ID."}, true
	default:
		return apiError{Code: http.StatusInternalServerError, Message: "internal server error"}, false
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, known := classify(err)
	if !known {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	if e.Code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}
	writeAPIError(w, e)
}

func writeAPIError(w http.ResponseWriter, ae apiError) {
	writeJSON(w, ae.Code, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(ae.Code)
		e.FieldStart("message")
		e.Str(ae.Message)
		if ae.Field != "" {
			e.FieldStart("field")
			e.Str(ae.Field)
		}
		e.ObjEnd()
	})
}
