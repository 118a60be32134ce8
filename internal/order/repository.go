package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/db"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repository interface {
	Create(ctx context.Context, o Order, event OutboxRecord) (CreateResult, error)
	FindByIdempotencyKey(ctx context.Context, clerkID, key string) (string, bool, error)
	Get(ctx context.Context, clerkID, orderID string) (Order, error)
	ListByUser(ctx context.Context, clerkID string) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID string, next Status) error
}

type TransactionalRepository interface {
	Repository
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, orderID string, next Status) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create writes the header, its lines and the outbox record in one
// transaction. Products are re-read FOR SHARE and re-validated first so a
// product disabled or drained after the cart snapshot is rejected. If the
// order carries an idempotency key already used by the same identity, the
// existing order id is returned and nothing is written.
func (r *PostgresRepository) Create(ctx context.Context, o Order, event OutboxRecord) (CreateResult, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: begin tx: %w", ErrOrderWriteFailed, db.Classify(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if o.IdempotencyKey != "" {
		existing, found, err := findByIdempotencyKey(ctx, tx, o.ClerkID, o.IdempotencyKey)
		if err != nil {
			return CreateResult{}, fmt.Errorf("%w: %w", ErrOrderWriteFailed, err)
		}
		if found {
			return CreateResult{OrderID: existing, Replayed: true}, nil
		}
	}

	if err := revalidate(ctx, tx, o.Items); err != nil {
		return CreateResult{}, err
	}

	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: encode shipping address: %w", ErrOrderWriteFailed, err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO orders (id, clerk_id, total_amount, status, shipping_address, order_note, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT ON CONSTRAINT orders_idempotency_key DO NOTHING
	`, o.ID, o.ClerkID, o.TotalAmount.StringFixed(2), string(o.Status), address,
		nullable(o.OrderNote), nullable(o.IdempotencyKey), o.CreatedAt)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: insert order: %w", ErrOrderWriteFailed, db.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		// A concurrent request with the same key committed first.
		existing, found, err := findByIdempotencyKey(ctx, tx, o.ClerkID, o.IdempotencyKey)
		if err != nil {
			return CreateResult{}, fmt.Errorf("%w: %w", ErrOrderWriteFailed, err)
		}
		if !found {
			return CreateResult{}, fmt.Errorf("%w: idempotency key %q conflicted without a visible order", ErrOrderWriteFailed, o.IdempotencyKey)
		}
		return CreateResult{OrderID: existing, Replayed: true}, nil
	}

	for _, it := range o.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, quantity, price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, it.ID, o.ID, it.ProductID, it.ProductName, it.Quantity, it.Price.StringFixed(2), o.CreatedAt)
		if err != nil {
			return CreateResult{}, fmt.Errorf("%w: insert item for product %s: %w", ErrOrderItemsWriteFailed, it.ProductID, db.Classify(err))
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_id, event_name, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, event.ID, event.AggregateID, event.EventName, event.Payload, o.CreatedAt); err != nil {
		return CreateResult{}, fmt.Errorf("%w: insert outbox: %w", ErrOrderWriteFailed, db.Classify(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return CreateResult{}, fmt.Errorf("%w: commit: %w", ErrOrderWriteFailed, db.Classify(err))
	}
	return CreateResult{OrderID: o.ID}, nil
}

// FindByIdempotencyKey returns the id of the order clerkID created with key.
func (r *PostgresRepository) FindByIdempotencyKey(ctx context.Context, clerkID, key string) (string, bool, error) {
	return findByIdempotencyKey(ctx, r.pool, clerkID, key)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findByIdempotencyKey(ctx context.Context, q rowQuerier, clerkID, key string) (string, bool, error) {
	var id string
	err := q.QueryRow(ctx, `
		SELECT id::text FROM orders WHERE clerk_id = $1 AND idempotency_key = $2
	`, clerkID, key).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, db.Classify(fmt.Errorf("select order by idempotency key: %w", err))
	}
	return id, true, nil
}

func revalidate(ctx context.Context, tx pgx.Tx, items []Line) error {
	for _, it := range items {
		p := catalog.Product{ID: it.ProductID, Name: it.ProductName}
		err := tx.QueryRow(ctx, `
			SELECT name, stock_quantity, is_active
			FROM products
			WHERE id = $1
			FOR SHARE
		`, it.ProductID).Scan(&p.Name, &p.StockQuantity, &p.IsActive)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &catalog.InactiveError{ProductID: it.ProductID, ProductName: it.ProductName}
			}
			return fmt.Errorf("%w: lock product %s: %w", ErrOrderWriteFailed, it.ProductID, db.Classify(err))
		}
		if err := catalog.CheckAvailable(p, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const orderColumns = `id::text, clerk_id, total_amount, status,
		COALESCE(shipping_address, '{}'::jsonb), COALESCE(order_note, ''), COALESCE(idempotency_key, ''),
		created_at, updated_at`

func (r *PostgresRepository) Get(ctx context.Context, clerkID, orderID string) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND clerk_id = $2
	`, orderID, clerkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, db.Classify(fmt.Errorf("select order: %w", err))
	}

	byOrder, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Items = byOrder[o.ID]
	if o.Items == nil {
		o.Items = []Line{}
	}
	return o, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, clerkID string) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE clerk_id = $1
		ORDER BY created_at DESC
	`, clerkID)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("select orders: %w", err))
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(fmt.Errorf("rows: %w", err))
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	byOrder, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []Line{}
		}
	}
	return orders, nil
}

func (r *PostgresRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, order_id::text, product_id::text, product_name, price, quantity, created_at
		FROM order_items
		WHERE order_id::text = ANY($1)
		ORDER BY created_at, id
	`, orderIDs)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("select order items: %w", err))
	}
	defer rows.Close()

	out := make(map[string][]Line, len(orderIDs))
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Price, &l.Quantity, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(fmt.Errorf("rows: %w", err))
	}
	return out, nil
}

func (r *PostgresRepository) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, txOptions)
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, orderID string, next Status) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return db.Classify(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.UpdateStatusWithTx(ctx, tx, orderID, next); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return db.Classify(fmt.Errorf("commit status: %w", err))
	}
	return nil
}

// UpdateStatusWithTx locks the order row and applies next if the lifecycle
// allows it from the current status.
func (r *PostgresRepository) UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, orderID string, next Status) error {
	var current string
	err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return db.Classify(fmt.Errorf("lock order: %w", err))
	}

	if !Status(current).CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
	`, orderID, string(next)); err != nil {
		return db.Classify(fmt.Errorf("update order status: %w", err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	var status string
	var address []byte
	if err := row.Scan(&o.ID, &o.ClerkID, &o.TotalAmount, &status, &address, &o.OrderNote, &o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	if len(address) > 0 {
		if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
			return Order{}, fmt.Errorf("decode shipping address: %w", err)
		}
	}
	return o, nil
}
