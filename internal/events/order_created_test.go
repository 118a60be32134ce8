package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

func TestFactory_OrderCreated(t *testing.T) {
	now := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	o := order.Order{
		ID:          "9b2f4c1d-7e3a-4d5b-8c6f-1a2b3c4d5e6f",
		ClerkID:     "user_2abc",
		TotalAmount: decimal.RequireFromString("20.29"),
		CreatedAt:   now,
		Items: []order.Line{
			{ProductID: "p1", ProductName: "Pen", Price: decimal.RequireFromString("0.1"), Quantity: 3},
			{ProductID: "p2", ProductName: "Book", Price: decimal.RequireFromString("19.99"), Quantity: 1},
		},
	}

	rec, err := NewFactory("").OrderCreated(o)
	require.NoError(t, err)
	assert.Equal(t, o.ID, rec.AggregateID)
	assert.Equal(t, OrderCreatedRoutingKey, rec.EventName)

	env, err := parseEnvelope(rec.Payload)
	require.NoError(t, err)
	require.NoError(t, env.Validate(EventTypeOrderCreated, 1))
	assert.Equal(t, rec.ID, env.EventID)
	assert.Equal(t, "storefront-service", env.Producer)
	assert.Equal(t, o.ID, env.PartitionKey)
	assert.Equal(t, orderCreatedSchema, env.Schema)
	assert.Zero(t, env.Sequence)
	assert.Equal(t, o.ID, env.CorrelationID, "falls back to the order id")
	assert.True(t, env.OccurredAt.Equal(now))

	var payload OrderCreatedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "user_2abc", payload.UserID)
	assert.Equal(t, "20.29", payload.TotalAmount)
	require.Len(t, payload.Items, 2)
	assert.Equal(t, OrderCreatedItem{ProductID: "p1", ProductName: "Pen", Quantity: 3, Price: "0.10"}, payload.Items[0])

	o.CorrelationID = "cid-1"
	rec, err = NewFactory("").OrderCreated(o)
	require.NoError(t, err)
	env, err = parseEnvelope(rec.Payload)
	require.NoError(t, err)
	assert.Equal(t, "cid-1", env.CorrelationID)
}

func TestEnvelope_Validate(t *testing.T) {
	ok := EventEnvelope{EventName: EventTypeOrderStatusChanged, EventVersion: 1, EventID: "e1", PartitionKey: "o1"}
	require.NoError(t, ok.Validate(EventTypeOrderStatusChanged, 1))

	tests := map[string]func(*EventEnvelope){
		"wrong name":        func(e *EventEnvelope) { e.EventName = "Other" },
		"wrong version":     func(e *EventEnvelope) { e.EventVersion = 2 },
		"missing partition": func(e *EventEnvelope) { e.PartitionKey = "" },
		"missing event id":  func(e *EventEnvelope) { e.EventID = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			env := ok
			mutate(&env)
			assert.Error(t, env.Validate(EventTypeOrderStatusChanged, 1))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, deliveryApply, classify(1, 0, false))
	assert.Equal(t, deliveryApply, classify(0, 9, true))
	assert.Equal(t, deliveryApply, classify(4, 3, true))
	assert.Equal(t, deliveryDuplicate, classify(3, 3, true))
	assert.Equal(t, deliveryDuplicate, classify(2, 3, true))
	assert.Equal(t, deliveryGap, classify(6, 3, true))
}
