package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrInactive          = errors.New("product is not for sale")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InactiveError names the disabled product.
type InactiveError struct {
	ProductID   string
	ProductName string
}

func (e *InactiveError) Error() string {
	return fmt.Sprintf("product %q is not for sale", e.ProductName)
}

func (e *InactiveError) Is(target error) bool { return target == ErrInactive }

// StockError reports a quantity the product cannot cover. InCart is the
// quantity already held in the cart when the request merges into it.
type StockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
	InCart      int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

// CheckAvailable verifies that p is active and can cover quantity units.
func CheckAvailable(p Product, quantity int) error {
	if !p.IsActive {
		return &InactiveError{ProductID: p.ID, ProductName: p.Name}
	}
	if quantity > p.StockQuantity {
		return &StockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Available:   p.StockQuantity,
			Requested:   quantity,
		}
	}
	return nil
}
