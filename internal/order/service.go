package order

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/identity"
)

// CartSource returns the caller's current cart lines joined with their
// products. An unreadable cart is reported as empty.
type CartSource interface {
	ListItems(ctx context.Context, clerkID string) []cart.Item
}

// EventFactory renders the integration event stored alongside a new order.
type EventFactory interface {
	OrderCreated(o Order) (OutboxRecord, error)
}

type Service struct {
	repo   Repository
	carts  CartSource
	events EventFactory
	logger *log.Logger
	now    func() time.Time
}

func NewService(repo Repository, carts CartSource, events EventFactory, logger *log.Logger) *Service {
	return &Service{
		repo:   repo,
		carts:  carts,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Checkout turns the caller's cart into a pending order and returns its id.
// The cart itself is left untouched. A key already used by clerkID returns
// that order before the cart is read, so a retry succeeds even after the
// cart was emptied or the first order took the last units.
func (s *Service) Checkout(ctx context.Context, clerkID string, in CreateInput) (string, error) {
	if clerkID == "" {
		return "", identity.ErrUnauthenticated
	}
	if in.IdempotencyKey != "" {
		existing, found, err := s.repo.FindByIdempotencyKey(ctx, clerkID, in.IdempotencyKey)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrOrderWriteFailed, err)
		}
		if found {
			s.logger.Printf("checkout replayed clerk=%s key=%s order=%s", clerkID, in.IdempotencyKey, existing)
			return existing, nil
		}
	}
	if err := in.ShippingAddress.Validate(); err != nil {
		return "", err
	}

	items := s.carts.ListItems(ctx, clerkID)
	if len(items) == 0 {
		return "", ErrEmptyCart
	}

	for _, it := range items {
		if err := catalog.CheckAvailable(it.Product, it.Quantity); err != nil {
			return "", err
		}
	}

	o := s.draft(clerkID, in, items)

	event, err := s.events.OrderCreated(o)
	if err != nil {
		return "", fmt.Errorf("%w: build event: %w", ErrOrderWriteFailed, err)
	}

	res, err := s.repo.Create(ctx, o, event)
	if err != nil {
		s.logger.Printf("checkout failed clerk=%s lines=%d: %v", clerkID, len(o.Items), err)
		return "", err
	}
	if res.Replayed {
		s.logger.Printf("checkout replayed clerk=%s key=%s order=%s", clerkID, in.IdempotencyKey, res.OrderID)
		return res.OrderID, nil
	}

	s.logger.Printf("order created id=%s clerk=%s lines=%d total=%s", res.OrderID, clerkID, len(o.Items), o.TotalAmount.StringFixed(2))
	return res.OrderID, nil
}

func (s *Service) draft(clerkID string, in CreateInput, items []cart.Item) Order {
	now := s.now()
	o := Order{
		ID:              uuid.NewString(),
		ClerkID:         clerkID,
		TotalAmount:     decimal.Zero,
		Status:          StatusPending,
		ShippingAddress: in.ShippingAddress,
		OrderNote:       in.OrderNote,
		IdempotencyKey:  in.IdempotencyKey,
		CorrelationID:   in.CorrelationID,
		Items:           make([]Line, 0, len(items)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, it := range items {
		l := Line{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			ProductID:   it.ProductID,
			ProductName: it.Product.Name,
			Price:       it.Product.Price,
			Quantity:    it.Quantity,
			CreatedAt:   now,
		}
		o.Items = append(o.Items, l)
		o.TotalAmount = o.TotalAmount.Add(it.Subtotal())
	}
	return o
}

func (s *Service) Get(ctx context.Context, clerkID, orderID string) (Order, error) {
	if clerkID == "" {
		return Order{}, identity.ErrUnauthenticated
	}
	if _, err := uuid.Parse(orderID); err != nil {
		return Order{}, ErrNotFound
	}
	return s.repo.Get(ctx, clerkID, orderID)
}

func (s *Service) ListByUser(ctx context.Context, clerkID string) ([]Order, error) {
	if clerkID == "" {
		return nil, identity.ErrUnauthenticated
	}
	return s.repo.ListByUser(ctx, clerkID)
}

func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status) error {
	if _, err := uuid.Parse(orderID); err != nil {
		return ErrNotFound
	}
	if err := s.repo.UpdateStatus(ctx, orderID, next); err != nil {
		return err
	}
	s.logger.Printf("order status updated id=%s status=%s", orderID, next)
	return nil
}
