package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrEmptyCart is returned by PlaceOrder when the user's cart has no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotFound is returned when an order does not exist or is not visible
	// to the caller.
	ErrNotFound = errors.New("order not found")
	// ErrForbidden is returned when the caller's roles do not allow an update.
	ErrForbidden = errors.New("you are not authorized to perform this action")
	// ErrUnauthorized is returned when a non-manager tries to delete an order.
	ErrUnauthorized = errors.New("only managers may delete orders")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// DeliveryCrewNotFoundError indicates the assignee does not exist or is not in
// the Delivery-crew group.
type DeliveryCrewNotFoundError struct {
	UserID int64
}

func (e *DeliveryCrewNotFoundError) Error() string {
	return fmt.Sprintf("delivery crew %d not found", e.UserID)
}
