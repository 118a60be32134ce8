package actions

import (
	"errors"
	"fmt"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

// Code classifies a failed Result for callers that branch on it.
type Code string

const (
	CodeUnauthenticated       Code = "unauthenticated"
	CodeNotFound              Code = "not_found"
	CodeInactive              Code = "inactive"
	CodeInsufficientStock     Code = "insufficient_stock"
	CodeInvalidInput          Code = "invalid_input"
	CodeEmptyCart             Code = "empty_cart"
	CodeOrderWriteFailed      Code = "order_write_failed"
	CodeOrderItemsWriteFailed Code = "order_items_write_failed"
	CodeBackendUnavailable    Code = "backend_unavailable"
	CodeInternal              Code = "internal"
)

func describe(err error) (Code, string) {
	var stockErr *catalog.StockError
	var inactiveErr *catalog.InactiveError

	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		return CodeUnauthenticated, "Please sign in to continue."
	case errors.Is(err, order.ErrOrderItemsWriteFailed):
		return CodeOrderItemsWriteFailed, "Failed to save the order items. No order was created."
	case errors.Is(err, order.ErrOrderWriteFailed):
		return CodeOrderWriteFailed, "Failed to create the order. Please try again."
	case errors.Is(err, db.ErrBackendUnavailable):
		return CodeBackendUnavailable, "The store is temporarily unavailable. Please try again shortly."
	case errors.As(err, &stockErr):
		if stockErr.InCart > 0 {
			return CodeInsufficientStock, fmt.Sprintf("You already have %d of %q in your cart and only %d are in stock.",
				stockErr.InCart, stockErr.ProductName, stockErr.Available)
		}
		return CodeInsufficientStock, fmt.Sprintf("Only %d of %q left in stock (requested %d).",
			stockErr.Available, stockErr.ProductName, stockErr.Requested)
	case errors.As(err, &inactiveErr):
		return CodeInactive, fmt.Sprintf("%q is no longer available.", inactiveErr.ProductName)
	case errors.Is(err, catalog.ErrNotFound):
		return CodeNotFound, "Product not found."
	case errors.Is(err, cart.ErrLineNotFound):
		return CodeNotFound, "Cart item not found."
	case errors.Is(err, order.ErrNotFound):
		return CodeNotFound, "Order not found."
	case errors.Is(err, cart.ErrInvalidQuantity):
		return CodeInvalidInput, "Quantity must be at least 1."
	case errors.Is(err, order.ErrInvalidShippingAddress):
		return CodeInvalidInput, "Please complete the shipping address."
	case errors.Is(err, identity.ErrMissingClerkID):
		return CodeInvalidInput, "A user id is required."
	case errors.Is(err, order.ErrEmptyCart):
		return CodeEmptyCart, "Your cart is empty."
	default:
		return CodeInternal, "Something went wrong. Please try again."
	}
}
