package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

const (
	EventTypeOrderCreated = "OrderCreated"
	orderCreatedSchema    = "storefront.order.created.v1"
)

type OrderCreatedItem struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID     string             `json:"orderId"`
	UserID      string             `json:"userId"`
	Items       []OrderCreatedItem `json:"items"`
	TotalAmount string             `json:"totalAmount"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Factory renders outbox records for new orders. The sequence is left empty
// and assigned by the relay when the record is published.
type Factory struct {
	Producer string
}

func NewFactory(producer string) *Factory {
	if producer == "" {
		producer = "storefront-service"
	}
	return &Factory{Producer: producer}
}

func (f *Factory) OrderCreated(o order.Order) (order.OutboxRecord, error) {
	payload := OrderCreatedPayload{
		OrderID:     o.ID,
		UserID:      o.ClerkID,
		Items:       make([]OrderCreatedItem, 0, len(o.Items)),
		TotalAmount: o.TotalAmount.StringFixed(2),
		Timestamp:   o.CreatedAt,
	}
	for _, it := range o.Items {
		payload.Items = append(payload.Items, OrderCreatedItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price.StringFixed(2),
		})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return order.OutboxRecord{}, fmt.Errorf("marshal OrderCreated payload: %w", err)
	}

	correlationID := o.CorrelationID
	if correlationID == "" {
		correlationID = o.ID
	}

	eventID := uuid.NewString()
	env := EventEnvelope{
		EventName:     EventTypeOrderCreated,
		EventVersion:  1,
		EventID:       eventID,
		CorrelationID: correlationID,
		Producer:      f.Producer,
		PartitionKey:  o.ID,
		OccurredAt:    o.CreatedAt,
		Schema:        orderCreatedSchema,
		Payload:       raw,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return order.OutboxRecord{}, fmt.Errorf("marshal OrderCreated envelope: %w", err)
	}

	return order.OutboxRecord{
		ID:          eventID,
		AggregateID: o.ID,
		EventName:   OrderCreatedRoutingKey,
		Payload:     body,
	}, nil
}
