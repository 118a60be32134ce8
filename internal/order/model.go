package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
)

var (
	ErrEmptyCart              = errors.New("cart is empty")
	ErrProductInactive        = catalog.ErrInactive
	ErrInsufficientStock      = catalog.ErrInsufficientStock
	ErrOrderWriteFailed       = errors.New("order could not be written")
	ErrOrderItemsWriteFailed  = errors.New("order items could not be written")
	ErrNotFound               = errors.New("order not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrInvalidShippingAddress = errors.New("invalid shipping address")
)

type ShippingAddress struct {
	RecipientName  string `json:"recipient_name"`
	RecipientPhone string `json:"recipient_phone"`
	PostalCode     string `json:"postal_code"`
	Address        string `json:"address"`
	DetailAddress  string `json:"detail_address,omitempty"`
}

func (a ShippingAddress) Validate() error {
	var missing []string
	if strings.TrimSpace(a.RecipientName) == "" {
		missing = append(missing, "recipient_name")
	}
	if strings.TrimSpace(a.RecipientPhone) == "" {
		missing = append(missing, "recipient_phone")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		missing = append(missing, "postal_code")
	}
	if strings.TrimSpace(a.Address) == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidShippingAddress, strings.Join(missing, ", "))
	}
	return nil
}

// Line is an order item with the product name and unit price frozen at
// order time.
type Line struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Order struct {
	ID              string          `json:"id"`
	ClerkID         string          `json:"clerk_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          Status          `json:"status"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	OrderNote       string          `json:"order_note,omitempty"`
	IdempotencyKey  string          `json:"-"`
	CorrelationID   string          `json:"-"`
	Items           []Line          `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type CreateInput struct {
	ShippingAddress ShippingAddress
	OrderNote       string
	// IdempotencyKey is optional. A repeated key for the same identity
	// returns the order created by the first request.
	IdempotencyKey string
	CorrelationID  string
}

// OutboxRecord is an integration event stored in the same transaction as the
// order it describes.
type OutboxRecord struct {
	ID          string
	AggregateID string
	EventName   string
	Payload     []byte
}

type CreateResult struct {
	OrderID  string
	Replayed bool
}
