package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/db"
)

var ErrNotFound = errors.New("product not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Reader is the read-only view of the product collection.
type Reader interface {
	List(ctx context.Context, q Query) ([]Product, error)
	Count(ctx context.Context, q Query) (int, error)
	Get(ctx context.Context, productID string) (Product, error)
	Popular(ctx context.Context, limit int) ([]Product, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const productColumns = `p.id::text, p.name, COALESCE(p.description, ''), p.price, p.category,
		p.stock_quantity, p.is_active, COALESCE(p.image_url, ''), p.created_at, p.updated_at`

const soldJoin = `
		LEFT JOIN (
			SELECT product_id, SUM(quantity) AS sold
			FROM order_items
			GROUP BY product_id
		) s ON s.product_id = p.id`

func (r *PostgresRepository) List(ctx context.Context, q Query) ([]Product, error) {
	q = q.normalized()
	where, args := filterClause(q)

	var join string
	if q.Sort == SortPopular {
		join = soldJoin
	}

	args = append(args, q.PerPage, q.offset())
	sql := fmt.Sprintf(`
		SELECT %s
		FROM products p%s
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		productColumns, join, where, orderClause(q.Sort), len(args)-1, len(args))

	return r.queryProducts(ctx, sql, args...)
}

func (r *PostgresRepository) Count(ctx context.Context, q Query) (int, error) {
	where, args := filterClause(q.normalized())

	var total int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products p WHERE `+where, args...).Scan(&total)
	if err != nil {
		return 0, db.Classify(fmt.Errorf("count products: %w", err))
	}
	return int(total), nil
}

func (r *PostgresRepository) Get(ctx context.Context, productID string) (Product, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return Product{}, ErrNotFound
	}

	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, productID)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, db.Classify(fmt.Errorf("select product: %w", err))
	}
	return p, nil
}

func (r *PostgresRepository) Popular(ctx context.Context, limit int) ([]Product, error) {
	if limit < 1 {
		limit = 8
	}
	return r.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products p`+soldJoin+`
		WHERE p.is_active = true
		ORDER BY `+orderClause(SortPopular)+`
		LIMIT $1`, limit)
}

func (r *PostgresRepository) queryProducts(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("query products: %w", err))
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(fmt.Errorf("rows: %w", err))
	}
	return products, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	var category string
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&category,
		&p.StockQuantity,
		&p.IsActive,
		&p.ImageURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	p.Category = Category(category)
	return p, err
}

func filterClause(q Query) (string, []any) {
	conds := []string{"p.is_active = true"}
	var args []any

	if len(q.Categories) > 0 {
		cats := make([]string, 0, len(q.Categories))
		for _, c := range q.Categories {
			cats = append(cats, string(c))
		}
		args = append(args, cats)
		conds = append(conds, fmt.Sprintf("p.category = ANY($%d)", len(args)))
	}

	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		conds = append(conds, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", len(args), len(args)))
	}

	return strings.Join(conds, " AND "), args
}

func orderClause(s Sort) string {
	switch s {
	case SortPriceAsc:
		return "p.price ASC, p.created_at DESC"
	case SortPriceDesc:
		return "p.price DESC, p.created_at DESC"
	case SortNameAsc:
		return "p.name ASC, p.created_at DESC"
	case SortPopular:
		return "COALESCE(s.sold, 0) DESC, p.created_at DESC"
	default:
		return "p.created_at DESC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
