package cart

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/identity"
)

var (
	ErrLineNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// ProductLookup resolves a product by id, returning catalog.ErrNotFound when absent.
type ProductLookup interface {
	Get(ctx context.Context, productID string) (catalog.Product, error)
}

// Service keeps at most one line per (identity, product) and checks stock on
// every quantity change.
type Service struct {
	repo     Repository
	products ProductLookup
	logger   *log.Logger
}

func NewService(repo Repository, products ProductLookup, logger *log.Logger) *Service {
	return &Service{repo: repo, products: products, logger: logger}
}

func (s *Service) AddItem(ctx context.Context, clerkID, productID string, quantity int) error {
	if clerkID == "" {
		return identity.ErrUnauthenticated
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}
	if err := catalog.CheckAvailable(p, quantity); err != nil {
		return err
	}

	existing, err := s.repo.FindLine(ctx, clerkID, productID)
	switch {
	case errors.Is(err, ErrLineNotFound):
	case err != nil:
		return err
	default:
		if merged := existing.Quantity + quantity; merged > p.StockQuantity {
			return &catalog.StockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.StockQuantity,
				Requested:   quantity,
				InCart:      existing.Quantity,
			}
		}
	}

	if err := s.repo.AddLine(ctx, clerkID, productID, quantity); err != nil {
		return fmt.Errorf("add product %s: %w", productID, err)
	}
	return nil
}

// ListItems never fails: anonymous callers and read errors both yield an empty cart.
func (s *Service) ListItems(ctx context.Context, clerkID string) []Item {
	if clerkID == "" {
		return []Item{}
	}
	items, err := s.repo.ListItems(ctx, clerkID)
	if err != nil {
		s.logger.Printf("list cart items clerk=%s: %v", clerkID, err)
		return []Item{}
	}
	return items
}

func (s *Service) UpdateQuantity(ctx context.Context, clerkID, lineID string, quantity int) error {
	if clerkID == "" {
		return identity.ErrUnauthenticated
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if _, err := uuid.Parse(lineID); err != nil {
		return ErrLineNotFound
	}

	it, err := s.repo.GetItem(ctx, clerkID, lineID)
	if err != nil {
		return err
	}
	if quantity > it.Product.StockQuantity {
		return &catalog.StockError{
			ProductID:   it.Product.ID,
			ProductName: it.Product.Name,
			Available:   it.Product.StockQuantity,
			Requested:   quantity,
		}
	}

	return s.repo.SetQuantity(ctx, clerkID, lineID, quantity)
}

// RemoveItem deletes the line only if clerkID owns it. A line owned by someone
// else, or no line at all, is reported as success.
func (s *Service) RemoveItem(ctx context.Context, clerkID, lineID string) error {
	if clerkID == "" {
		return identity.ErrUnauthenticated
	}
	if _, err := uuid.Parse(lineID); err != nil {
		return nil
	}

	n, err := s.repo.DeleteLine(ctx, clerkID, lineID)
	if err != nil {
		return err
	}
	if n == 0 {
		s.logger.Printf("remove cart item: no line id=%s for clerk=%s", lineID, clerkID)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, clerkID string) error {
	if clerkID == "" {
		return identity.ErrUnauthenticated
	}
	return s.repo.DeleteAll(ctx, clerkID)
}
