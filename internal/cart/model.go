package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
)

type Line struct {
	ID        string    `json:"id"`
	ClerkID   string    `json:"clerk_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is a cart line joined with the current state of its product.
type Item struct {
	Line
	Product catalog.Product `json:"product"`
}

func (it Item) Subtotal() decimal.Decimal {
	return it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Summary struct {
	Items         []Item          `json:"items"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

func Summarize(items []Item) Summary {
	s := Summary{Items: items, TotalAmount: decimal.Zero}
	for _, it := range items {
		s.TotalQuantity += it.Quantity
		s.TotalAmount = s.TotalAmount.Add(it.Subtotal())
	}
	return s
}
