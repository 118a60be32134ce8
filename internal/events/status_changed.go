package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

const (
	EventTypeOrderStatusChanged    = "OrderStatusChanged"
	orderStatusChangedConsumerName = "storefront-order-status-changed"
)

type OrderStatusChangedPayload struct {
	OrderID   string    `json:"orderId"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HandlerFunc processes one message body. A returned error rejects the
// message to the dead letter queue.
type HandlerFunc func(ctx context.Context, body []byte) error

// OrderStatusChangedHandler applies status updates reported by fulfilment.
// The checkpoint advances in the same transaction as the update, so a
// redelivered event is skipped rather than applied twice.
func OrderStatusChangedHandler(repo order.TransactionalRepository, checkpoints *Checkpoints, logger *log.Logger, consumerName string) HandlerFunc {
	if consumerName == "" {
		consumerName = orderStatusChangedConsumerName
	}

	return func(ctx context.Context, body []byte) error {
		env, err := parseEnvelope(body)
		if err != nil {
			return err
		}
		if err := env.Validate(EventTypeOrderStatusChanged, 1); err != nil {
			return err
		}

		var payload OrderStatusChangedPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("decode OrderStatusChanged payload: %w", err)
		}
		if payload.OrderID == "" {
			return fmt.Errorf("missing orderId")
		}
		next, err := order.ParseStatus(payload.Status)
		if err != nil {
			return err
		}

		tx, err := repo.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		local := checkpoints.WithExecutor(tx)

		last, found, err := local.Last(ctx, consumerName, env.PartitionKey)
		if err != nil {
			return err
		}
		switch classify(env.Sequence, last, found) {
		case deliveryDuplicate:
			logger.Printf("skip duplicate orderId=%s partition=%s seq=%d last=%d", payload.OrderID, env.PartitionKey, env.Sequence, last)
			return nil
		case deliveryGap:
			logger.Printf("warning: sequence gap for partition=%s seq=%d last=%d", env.PartitionKey, env.Sequence, last)
		}

		if err := repo.UpdateStatusWithTx(ctx, tx, payload.OrderID, next); err != nil {
			return fmt.Errorf("apply status %s to order %s: %w", next, payload.OrderID, err)
		}

		if env.Sequence != 0 {
			if err := local.Advance(ctx, consumerName, env.PartitionKey, env.Sequence); err != nil {
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit status change: %w", err)
		}

		logger.Printf("order status changed id=%s status=%s seq=%d", payload.OrderID, next, env.Sequence)
		return nil
	}
}
