// Package actions exposes the storefront operations called by the UI. Every
// operation returns a Result; errors never escape past this package.
package actions

import (
	"context"
	"log"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId,omitempty"`
	Code    Code   `json:"code,omitempty"`
}

type CartService interface {
	AddItem(ctx context.Context, clerkID, productID string, quantity int) error
	ListItems(ctx context.Context, clerkID string) []cart.Item
	UpdateQuantity(ctx context.Context, clerkID, lineID string, quantity int) error
	RemoveItem(ctx context.Context, clerkID, lineID string) error
	Clear(ctx context.Context, clerkID string) error
}

type OrderService interface {
	Checkout(ctx context.Context, clerkID string, in order.CreateInput) (string, error)
	Get(ctx context.Context, clerkID, orderID string) (order.Order, error)
	ListByUser(ctx context.Context, clerkID string) ([]order.Order, error)
}

type UserSyncer interface {
	Sync(ctx context.Context, clerkID, name string) error
}

type Actions struct {
	identity identity.Provider
	carts    CartService
	orders   OrderService
	users    UserSyncer
	logger   *log.Logger
}

func New(p identity.Provider, carts CartService, orders OrderService, users UserSyncer, logger *log.Logger) *Actions {
	return &Actions{identity: p, carts: carts, orders: orders, users: users, logger: logger}
}

func (a *Actions) AddToCart(ctx context.Context, productID string, quantity int) Result {
	clerkID, err := identity.Require(ctx, a.identity)
	if err != nil {
		return a.fail("addToCart", err)
	}
	if err := a.carts.AddItem(ctx, clerkID, productID, quantity); err != nil {
		return a.fail("addToCart", err)
	}
	return ok("Added to cart.")
}

// GetCartItems is empty for anonymous callers and on read failures.
func (a *Actions) GetCartItems(ctx context.Context) []cart.Item {
	clerkID, _ := a.identity.CurrentIdentity(ctx)
	return a.carts.ListItems(ctx, clerkID)
}

func (a *Actions) UpdateCartItemQuantity(ctx context.Context, lineID string, quantity int) Result {
	clerkID, err := identity.Require(ctx, a.identity)
	if err != nil {
		return a.fail("updateCartItemQuantity", err)
	}
	if err := a.carts.UpdateQuantity(ctx, clerkID, lineID, quantity); err != nil {
		return a.fail("updateCartItemQuantity", err)
	}
	return ok("Quantity updated.")
}

func (a *Actions) RemoveCartItem(ctx context.Context, lineID string) Result {
	clerkID, err := identity.Require(ctx, a.identity)
	if err != nil {
		return a.fail("removeCartItem", err)
	}
	if err := a.carts.RemoveItem(ctx, clerkID, lineID); err != nil {
		return a.fail("removeCartItem", err)
	}
	return ok("Item removed from cart.")
}

func (a *Actions) ClearCart(ctx context.Context) Result {
	clerkID, err := identity.Require(ctx, a.identity)
	if err != nil {
		return a.fail("clearCart", err)
	}
	if err := a.carts.Clear(ctx, clerkID); err != nil {
		return a.fail("clearCart", err)
	}
	return ok("Cart cleared.")
}

func (a *Actions) CreateOrder(ctx context.Context, in order.CreateInput) Result {
	clerkID, err := identity.Require(ctx, a.identity)
	if err != nil {
		return a.fail("createOrder", err)
	}
	id, err := a.orders.Checkout(ctx, clerkID, in)
	if err != nil {
		return a.fail("createOrder", err)
	}
	res := ok("Order placed.")
	res.OrderID = id
	return res
}

func (a *Actions) ListOrders(ctx context.Context) ([]order.Order, Result) {
	clerkID, err := identity.Require(ctx, a.identity)
	if err != nil {
		return nil, a.fail("listOrders", err)
	}
	orders, err := a.orders.ListByUser(ctx, clerkID)
	if err != nil {
		return nil, a.fail("listOrders", err)
	}
	return orders, ok("")
}

func (a *Actions) GetOrder(ctx context.Context, orderID string) (order.Order, Result) {
	clerkID, err := identity.Require(ctx, a.identity)
	if err != nil {
		return order.Order{}, a.fail("getOrder", err)
	}
	o, err := a.orders.Get(ctx, clerkID, orderID)
	if err != nil {
		return order.Order{}, a.fail("getOrder", err)
	}
	return o, ok("")
}

// SyncUser mirrors an identity-provider user. It is called by the provider's
// webhook, so it takes the clerk id explicitly instead of the request identity.
func (a *Actions) SyncUser(ctx context.Context, clerkID, name string) Result {
	if err := a.users.Sync(ctx, clerkID, name); err != nil {
		return a.fail("syncUser", err)
	}
	return ok("User synced.")
}

func ok(msg string) Result {
	return Result{Success: true, Message: msg}
}

func (a *Actions) fail(op string, err error) Result {
	code, msg := describe(err)
	if code == CodeInternal || code == CodeBackendUnavailable || code == CodeOrderWriteFailed || code == CodeOrderItemsWriteFailed {
		a.logger.Printf("%s failed code=%s: %v", op, code, err)
	}
	return Result{Success: false, Message: msg, Code: code}
}
