package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/actions"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

type fakeCatalog struct {
	products []catalog.Product
	err      error
	lastList catalog.Query
}

func (f *fakeCatalog) List(ctx context.Context, q catalog.Query) ([]catalog.Product, error) {
	f.lastList = q
	return f.products, f.err
}

func (f *fakeCatalog) Count(ctx context.Context, q catalog.Query) (int, error) {
	return len(f.products), f.err
}

func (f *fakeCatalog) Get(ctx context.Context, productID string) (catalog.Product, error) {
	for _, p := range f.products {
		if p.ID == productID {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (f *fakeCatalog) Popular(ctx context.Context, limit int) ([]catalog.Product, error) {
	if limit < len(f.products) {
		return f.products[:limit], f.err
	}
	return f.products, f.err
}

type fakeCart struct {
	items       []cart.Item
	addErr      error
	lastProduct string
	lastQty     int
}

func (f *fakeCart) AddItem(ctx context.Context, clerkID, productID string, quantity int) error {
	f.lastProduct, f.lastQty = productID, quantity
	return f.addErr
}

func (f *fakeCart) ListItems(ctx context.Context, clerkID string) []cart.Item {
	if clerkID == "" {
		return []cart.Item{}
	}
	return f.items
}

func (f *fakeCart) UpdateQuantity(ctx context.Context, clerkID, lineID string, quantity int) error {
	if quantity < 1 {
		return cart.ErrInvalidQuantity
	}
	return nil
}

func (f *fakeCart) RemoveItem(ctx context.Context, clerkID, lineID string) error { return nil }
func (f *fakeCart) Clear(ctx context.Context, clerkID string) error              { return nil }

type fakeOrders struct {
	lastInput order.CreateInput
	orders    []order.Order
}

func (f *fakeOrders) Checkout(ctx context.Context, clerkID string, in order.CreateInput) (string, error) {
	f.lastInput = in
	if err := in.ShippingAddress.Validate(); err != nil {
		return "", err
	}
	return "order-1", nil
}

func (f *fakeOrders) Get(ctx context.Context, clerkID, orderID string) (order.Order, error) {
	for _, o := range f.orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return order.Order{}, order.ErrNotFound
}

func (f *fakeOrders) ListByUser(ctx context.Context, clerkID string) ([]order.Order, error) {
	return f.orders, nil
}

type fakeUsers struct{}

func (fakeUsers) Sync(ctx context.Context, clerkID, name string) error {
	if clerkID == "" {
		return identity.ErrMissingClerkID
	}
	return nil
}

type fixture struct {
	catalog *fakeCatalog
	cart    *fakeCart
	orders  *fakeOrders
	router  http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		catalog: &fakeCatalog{products: []catalog.Product{
			{ID: "p1", Name: "Lamp", Price: decimal.RequireFromString("30.00"), StockQuantity: 2, IsActive: true},
			{ID: "p2", Name: "Mug", Price: decimal.RequireFromString("8.50"), StockQuantity: 5, IsActive: true},
		}},
		cart:   &fakeCart{},
		orders: &fakeOrders{},
	}
	logger := log.New(io.Discard, "", 0)
	a := actions.New(identity.ContextProvider{}, f.cart, f.orders, fakeUsers{}, logger)
	f.router = NewRouter(NewHandler(a, f.catalog, logger), time.Second, []string{"https://shop.example"})
	return f
}

func (f *fixture) do(t *testing.T, method, path, userID, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if userID != "" {
		req.Header.Set(identity.HeaderUserID, userID)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) actions.Result {
	t.Helper()
	var res actions.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestHealth(t *testing.T) {
	rec := newFixture().do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))
}

func TestListProducts_ParsesQuery(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/api/products?categories=books,electronics,weapons&sort=price_desc&page=-3&q=%20lamp%20", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listing catalog.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Len(t, listing.Products, 2)
	assert.Equal(t, 1, listing.Meta.CurrentPage)
	assert.Equal(t, 2, listing.Meta.TotalItems)

	assert.Equal(t, []catalog.Category{catalog.CategoryBooks, catalog.CategoryElectronics}, f.catalog.lastList.Categories)
	assert.Equal(t, catalog.SortPriceDesc, f.catalog.lastList.Sort)
	assert.Equal(t, "lamp", f.catalog.lastList.Search)
}

func TestListProducts_BackendDown(t *testing.T) {
	f := newFixture()
	f.catalog.err = fmt.Errorf("count: %w", db.ErrBackendUnavailable)
	rec := f.do(t, http.MethodGet, "/api/products", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetProduct(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/products/p1", "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/products/nope", "", "").Code)
}

func TestPopularProducts(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/api/products/popular?limit=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Products []catalog.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Products, 1)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/products/popular?limit=zero", "", "").Code)
}

func TestAddToCart(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/cart/items", "user_1", `{"productId":"p1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResult(t, rec).Success)
	assert.Equal(t, 1, f.cart.lastQty, "quantity defaults to 1")

	f.cart.addErr = &catalog.StockError{ProductName: "Lamp", Available: 2, Requested: 3}
	rec = f.do(t, http.MethodPost, "/api/cart/items", "user_1", `{"productId":"p1","quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult(t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, actions.CodeInsufficientStock, res.Code)
	assert.Contains(t, res.Message, "Lamp")
}

func TestAddToCart_Unauthenticated(t *testing.T) {
	rec := newFixture().do(t, http.MethodPost, "/api/cart/items", "", `{"productId":"p1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, decodeResult(t, rec).Success)
}

func TestAddToCart_BadJSON(t *testing.T) {
	rec := newFixture().do(t, http.MethodPost, "/api/cart/items", "user_1", `{"productId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCart(t *testing.T) {
	f := newFixture()
	f.cart.items = []cart.Item{
		{Line: cart.Line{ID: "l1", Quantity: 2}, Product: f.catalog.products[1]},
	}

	rec := f.do(t, http.MethodGet, "/api/cart", "user_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary cart.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.TotalQuantity)
	assert.True(t, summary.TotalAmount.Equal(decimal.RequireFromString("17")))

	rec = f.do(t, http.MethodGet, "/api/cart", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Empty(t, summary.Items)
}

func TestUpdateRemoveClear(t *testing.T) {
	f := newFixture()

	res := decodeResult(t, f.do(t, http.MethodPatch, "/api/cart/items/l1", "user_1", `{"quantity":0}`))
	assert.False(t, res.Success)
	assert.Equal(t, actions.CodeInvalidInput, res.Code)

	assert.True(t, decodeResult(t, f.do(t, http.MethodPatch, "/api/cart/items/l1", "user_1", `{"quantity":2}`)).Success)
	assert.True(t, decodeResult(t, f.do(t, http.MethodDelete, "/api/cart/items/l1", "user_1", "")).Success)
	assert.True(t, decodeResult(t, f.do(t, http.MethodDelete, "/api/cart", "user_1", "")).Success)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodDelete, "/api/cart", "", "").Code)
}

func TestCreateOrder(t *testing.T) {
	f := newFixture()
	body := `{"shipping_address":{"recipient_name":"Kim","recipient_phone":"010","postal_code":"04524","address":"1 Main St"},"order_note":"ring twice"}`

	rec := f.do(t, http.MethodPost, "/api/orders", "user_1", body, "Idempotency-Key", "k-42")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult(t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, "order-1", res.OrderID)
	assert.Equal(t, "k-42", f.orders.lastInput.IdempotencyKey)
	assert.Equal(t, "ring twice", f.orders.lastInput.OrderNote)

	rec = f.do(t, http.MethodPost, "/api/orders", "user_1", `{"shipping_address":{}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res = decodeResult(t, rec)
	assert.False(t, res.Success)
	assert.Empty(t, res.OrderID)
}

func TestOrders(t *testing.T) {
	f := newFixture()
	f.orders.orders = []order.Order{{ID: "o1", ClerkID: "user_1", Status: order.StatusPending}}

	rec := f.do(t, http.MethodGet, "/api/orders", "user_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"o1"`)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/orders/o1", "user_1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/orders/o2", "user_1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/orders", "", "").Code)
}

func TestSyncUser(t *testing.T) {
	f := newFixture()
	assert.True(t, decodeResult(t, f.do(t, http.MethodPost, "/api/users/sync", "", `{"clerkId":"user_1","name":""}`)).Success)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/users/sync", "", `{"clerkId":""}`).Code)
}

func TestCorrelationID(t *testing.T) {
	f := newFixture()
	body := `{"shipping_address":{"recipient_name":"Kim","recipient_phone":"010","postal_code":"04524","address":"1 Main St"}}`

	rec := f.do(t, http.MethodPost, "/api/orders", "user_1", body, HeaderCorrelationID, "cid-7")
	assert.Equal(t, "cid-7", rec.Header().Get(HeaderCorrelationID))
	assert.Equal(t, "cid-7", f.orders.lastInput.CorrelationID)

	rec = f.do(t, http.MethodGet, "/health", "", "")
	assert.NotEmpty(t, rec.Header().Get(HeaderCorrelationID))
}

func TestCORS(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodOptions, "/api/cart/items", "", "",
		"Origin", "https://shop.example", "Access-Control-Request-Method", "POST")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")

	rec = f.do(t, http.MethodGet, "/health", "", "", "Origin", "https://evil.example")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
