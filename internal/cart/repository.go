package cart

import (
	"context"
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
}

type Repository interface {
	FindLine(ctx context.Context, clerkID, productID string) (Line, error)
	AddLine(ctx context.Context, clerkID, productID string, quantity int) error
	GetItem(ctx context.Context, clerkID, lineID string) (Item, error)
	SetQuantity(ctx context.Context, clerkID, lineID string, quantity int) error
	ListItems(ctx context.Context, clerkID string) ([]Item, error)
	DeleteLine(ctx context.Context, clerkID, lineID string) (int64, error)
	DeleteAll(ctx context.Context, clerkID string) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) FindLine(ctx context.Context, clerkID, productID string) (Line, error) {
	var l Line
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, clerk_id, product_id::text, quantity, created_at, updated_at
		FROM cart_items
		WHERE clerk_id = $1 AND product_id = $2
	`, clerkID, productID).Scan(&l.ID, &l.ClerkID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Line{}, ErrLineNotFound
		}
		return Line{}, db.Classify(fmt.Errorf("select cart line: %w", err))
	}
	return l, nil
}

// AddLine inserts a line or merges quantity into the existing (clerk, product) line.
func (r *PostgresRepository) AddLine(ctx context.Context, clerkID, productID string, quantity int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cart_items (clerk_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT cart_items_clerk_product
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
	`, clerkID, productID, quantity)
	if err != nil {
		return db.Classify(fmt.Errorf("upsert cart line: %w", err))
	}
	return nil
}

const itemColumns = `ci.id::text, ci.clerk_id, ci.product_id::text, ci.quantity, ci.created_at, ci.updated_at,
		p.id::text, p.name, COALESCE(p.description, ''), p.price, p.category,
		p.stock_quantity, p.is_active, COALESCE(p.image_url, ''), p.created_at, p.updated_at`

func (r *PostgresRepository) GetItem(ctx context.Context, clerkID, lineID string) (Item, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.id = $1 AND ci.clerk_id = $2
	`, lineID, clerkID)

	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrLineNotFound
		}
		return Item{}, db.Classify(fmt.Errorf("select cart item: %w", err))
	}
	return it, nil
}

func (r *PostgresRepository) SetQuantity(ctx context.Context, clerkID, lineID string, quantity int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cart_items
		SET quantity = $3, updated_at = now()
		WHERE id = $1 AND clerk_id = $2
	`, lineID, clerkID, quantity)
	if err != nil {
		return db.Classify(fmt.Errorf("update cart line: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *PostgresRepository) ListItems(ctx context.Context, clerkID string) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.clerk_id = $1
		ORDER BY ci.created_at DESC
	`, clerkID)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("select cart items: %w", err))
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(fmt.Errorf("rows: %w", err))
	}
	return items, nil
}

// DeleteLine removes a line owned by clerkID and reports how many rows went away.
func (r *PostgresRepository) DeleteLine(ctx context.Context, clerkID, lineID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND clerk_id = $2`, lineID, clerkID)
	if err != nil {
		return 0, db.Classify(fmt.Errorf("delete cart line: %w", err))
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context, clerkID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE clerk_id = $1`, clerkID); err != nil {
		return db.Classify(fmt.Errorf("clear cart: %w", err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var it Item
	var category string
	err := row.Scan(
		&it.ID, &it.ClerkID, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt,
		&it.Product.ID,
		&it.Product.Name,
		&it.Product.Description,
		&it.Product.Price,
		&category,
		&it.Product.StockQuantity,
		&it.Product.IsActive,
		&it.Product.ImageURL,
		&it.Product.CreatedAt,
		&it.Product.UpdatedAt,
	)
	it.Product.Category = catalog.Category(category)
	return it, err
}
