package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productID = "3f1c2a7e-8d4b-4a51-9a3e-0c6f2b1d9e10"

var productCols = []string{
	"id", "name", "description", "price", "category",
	"stock_quantity", "is_active", "image_url", "created_at", "updated_at",
}

func productRow(rows *pgxmock.Rows, id, name, price string, stock int, active bool) *pgxmock.Rows {
	now := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	return rows.AddRow(id, name, "", decimal.RequireFromString(price), "books", stock, active, "", now, now)
}

func TestPostgresRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	rows := productRow(pgxmock.NewRows(productCols), productID, "Go in Action", "12.50", 3, true)
	mock.ExpectQuery(`WHERE p.is_active = true AND p.category = ANY\(\$1\) AND \(p.name ILIKE \$2 OR p.description ILIKE \$2\)\s+ORDER BY p.price ASC, p.created_at DESC\s+LIMIT \$3 OFFSET \$4`).
		WithArgs([]string{"books", "electronics"}, `%go\_lang%`, 12, 12).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), Query{
		Categories: []Category{CategoryBooks, CategoryElectronics},
		Search:     " go_lang ",
		Sort:       SortPriceAsc,
		Page:       2,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Go in Action", got[0].Name)
	assert.Equal(t, CategoryBooks, got[0].Category)
	assert.True(t, got[0].Price.Equal(decimal.RequireFromString("12.5")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListPopularJoinsSales(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`LEFT JOIN \(\s+SELECT product_id, SUM\(quantity\) AS sold[\s\S]+ORDER BY COALESCE\(s.sold, 0\) DESC`).
		WithArgs(12, 0).
		WillReturnRows(pgxmock.NewRows(productCols))

	got, err := NewPostgresRepository(mock).List(context.Background(), Query{Sort: SortPopular})
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Count(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM products p WHERE p.is_active = true$`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(27)))

	n, err := NewPostgresRepository(mock).Count(context.Background(), Query{Sort: SortNameAsc, Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 27, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(`FROM products p WHERE p.id = \$1`).
		WithArgs(productID).
		WillReturnRows(productRow(pgxmock.NewRows(productCols), productID, "Lamp", "30.00", 0, false))

	p, err := repo.Get(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, productID, p.ID)
	assert.False(t, p.IsActive)

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectQuery(`FROM products p WHERE p.id = \$1`).
			WithArgs(productID).
			WillReturnRows(pgxmock.NewRows(productCols))

		_, err := repo.Get(context.Background(), productID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("malformed id never reaches the database", func(t *testing.T) {
		_, err := repo.Get(context.Background(), "not-a-uuid")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("query error surfaces", func(t *testing.T) {
		mock.ExpectQuery(`FROM products p WHERE p.id = \$1`).
			WithArgs(productID).
			WillReturnError(errors.New("boom"))

		_, err := repo.Get(context.Background(), productID)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Popular(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows(productCols)
	productRow(rows, productID, "A", "1.00", 1, true)
	productRow(rows, "9b2f6d0e-1c3a-4e5b-8f7a-6d5c4b3a2e1f", "B", "2.00", 1, true)

	mock.ExpectQuery(`ORDER BY COALESCE\(s.sold, 0\) DESC, p.created_at DESC\s+LIMIT \$1`).
		WithArgs(8).
		WillReturnRows(rows)

	got, err := NewPostgresRepository(mock).Popular(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
