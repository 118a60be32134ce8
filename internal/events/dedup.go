package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/db"
)

// Executor is the subset of pgx shared by pools and transactions.
type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Checkpoints stores the last applied sequence per (consumer, partition).
type Checkpoints struct {
	executor Executor
}

func NewCheckpoints(exec Executor) *Checkpoints {
	return &Checkpoints{executor: exec}
}

// WithExecutor returns a copy bound to exec, typically a transaction.
func (c *Checkpoints) WithExecutor(exec Executor) *Checkpoints {
	return &Checkpoints{executor: exec}
}

// Last returns the last applied sequence and whether a checkpoint exists.
func (c *Checkpoints) Last(ctx context.Context, consumerName, partitionKey string) (int64, bool, error) {
	var last int64
	if err := c.executor.QueryRow(ctx, `
		SELECT last_sequence
		FROM event_dedup_checkpoint
		WHERE consumer_name = $1 AND partition_key = $2
	`, consumerName, partitionKey).Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, db.Classify(fmt.Errorf("select checkpoint: %w", err))
	}
	return last, true, nil
}

// Advance moves the checkpoint forward. It never moves backwards.
func (c *Checkpoints) Advance(ctx context.Context, consumerName, partitionKey string, seq int64) error {
	_, err := c.executor.Exec(ctx, `
		INSERT INTO event_dedup_checkpoint (consumer_name, partition_key, last_sequence)
		VALUES ($1, $2, $3)
		ON CONFLICT (consumer_name, partition_key)
		DO UPDATE SET
			last_sequence = GREATEST(event_dedup_checkpoint.last_sequence, EXCLUDED.last_sequence),
			updated_at = now()
	`, consumerName, partitionKey, seq)
	if err != nil {
		return db.Classify(fmt.Errorf("upsert checkpoint: %w", err))
	}
	return nil
}

type delivery int

const (
	deliveryApply delivery = iota
	deliveryDuplicate
	deliveryGap
)

// classify compares an incoming sequence with the stored checkpoint. A gap is
// still applied; callers only log it.
func classify(incoming, last int64, found bool) delivery {
	if !found || incoming == 0 {
		return deliveryApply
	}
	if incoming <= last {
		return deliveryDuplicate
	}
	if incoming > last+1 {
		return deliveryGap
	}
	return deliveryApply
}
