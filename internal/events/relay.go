package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/db"
)

type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// OutboxRelay publishes pending outbox rows. Each row is claimed, sequenced,
// published and marked in its own transaction, so a failed publish leaves the
// row and its sequence untouched for the next tick.
type OutboxRelay struct {
	pool      TxBeginner
	publisher Publisher
	logger    *log.Logger
	interval  time.Duration
	batchSize int
}

func NewOutboxRelay(pool TxBeginner, publisher Publisher, interval time.Duration, logger *log.Logger) *OutboxRelay {
	return &OutboxRelay{
		pool:      pool,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		batchSize: 10,
	}
}

func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Println("stopping outbox relay")
			return
		case <-ticker.C:
			n, err := r.Drain(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Printf("outbox relay: published=%d err=%v", n, err)
			}
		}
	}
}

// Drain publishes up to one batch of pending rows and reports how many went out.
func (r *OutboxRelay) Drain(ctx context.Context) (int, error) {
	published := 0
	for published < r.batchSize {
		ok, err := r.publishOne(ctx)
		if err != nil {
			return published, err
		}
		if !ok {
			break
		}
		published++
	}
	return published, nil
}

func (r *OutboxRelay) publishOne(ctx context.Context) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, db.Classify(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id, aggregateID, eventName string
	var payload []byte
	err = tx.QueryRow(ctx, `
		SELECT id::text, aggregate_id, event_name, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`).Scan(&id, &aggregateID, &eventName, &payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, db.Classify(fmt.Errorf("claim outbox row: %w", err))
	}

	env, err := parseEnvelope(payload)
	if err != nil {
		// A row that can never be published would block the queue head.
		r.logger.Printf("discarding malformed outbox row id=%s: %v", id, err)
		if err := markPublished(ctx, tx, id); err != nil {
			return false, err
		}
		return true, tx.Commit(ctx)
	}

	partition := env.PartitionKey
	if partition == "" {
		partition = aggregateID
		env.PartitionKey = aggregateID
	}
	seq, err := NewSequenceRepository(tx).NextSequence(ctx, partition)
	if err != nil {
		return false, err
	}
	env.Sequence = seq

	body, err := marshalEnvelope(env)
	if err != nil {
		return false, err
	}

	if err := r.publisher.Publish(ctx, eventName, env.EventID, body); err != nil {
		return false, fmt.Errorf("publish %s id=%s: %w", eventName, id, err)
	}

	if err := markPublished(ctx, tx, id); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, db.Classify(fmt.Errorf("commit outbox row: %w", err))
	}

	r.logger.Printf("published %s id=%s partition=%s seq=%d", eventName, id, partition, seq)
	return true, nil
}

func markPublished(ctx context.Context, tx pgx.Tx, id string) error {
	if _, err := tx.Exec(ctx, `UPDATE outbox SET published_at = now() WHERE id = $1`, id); err != nil {
		return db.Classify(fmt.Errorf("mark outbox row published: %w", err))
	}
	return nil
}
