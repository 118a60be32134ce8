package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryClothing    Category = "clothing"
	CategoryBooks       Category = "books"
	CategoryFood        Category = "food"
	CategorySports      Category = "sports"
	CategoryBeauty      Category = "beauty"
	CategoryHome        Category = "home"
	CategoryAccessories Category = "accessories"
	CategoryToys        Category = "toys"
	CategoryAutomotive  Category = "automotive"
)

// FilterCategories are the categories offered as listing filters. Products may
// carry any Category; only these can be selected by shoppers.
var FilterCategories = []Category{
	CategoryElectronics,
	CategoryClothing,
	CategoryBooks,
	CategoryFood,
	CategorySports,
	CategoryBeauty,
	CategoryHome,
}

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Category      Category        `json:"category"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
	ImageURL      string          `json:"image_url"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
