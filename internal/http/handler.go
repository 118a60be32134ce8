package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/actions"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	maxBodyBytes         = 1 << 20
	defaultPopularLimit  = 8
	maxPopularLimit      = 48
)

type Handler struct {
	actions *actions.Actions
	catalog catalog.Reader
	logger  *log.Logger
}

func NewHandler(a *actions.Actions, products catalog.Reader, logger *log.Logger) *Handler {
	return &Handler{actions: a, catalog: products, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := catalog.Query{
		Categories: catalog.ParseCategories(v["categories"]...),
		Search:     catalog.ParseSearch(v.Get("q")),
		Sort:       catalog.ParseSort(v.Get("sort")),
		Page:       catalog.ParsePage(v.Get("page")),
	}

	listing, err := catalog.Browse(r.Context(), h.catalog, q)
	if err != nil {
		h.readError(w, "list products", err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *Handler) PopularProducts(w http.ResponseWriter, r *http.Request) {
	limit := defaultPopularLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		limit = min(n, maxPopularLimit)
	}

	products, err := h.catalog.Popular(r.Context(), limit)
	if err != nil {
		h.readError(w, "popular products", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.readError(w, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	writeResult(w, h.actions.AddToCart(r.Context(), req.ProductID, quantity))
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cart.Summarize(h.actions.GetCartItems(r.Context())))
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeResult(w, h.actions.UpdateCartItemQuantity(r.Context(), chi.URLParam(r, "cartItemId"), req.Quantity))
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.actions.RemoveCartItem(r.Context(), chi.URLParam(r, "cartItemId")))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.actions.ClearCart(r.Context()))
}

type createOrderRequest struct {
	ShippingAddress order.ShippingAddress `json:"shipping_address"`
	OrderNote       string                `json:"order_note"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeResult(w, h.actions.CreateOrder(r.Context(), order.CreateInput{
		ShippingAddress: req.ShippingAddress,
		OrderNote:       req.OrderNote,
		IdempotencyKey:  r.Header.Get(headerIdempotencyKey),
		CorrelationID:   correlationIDFrom(r.Context()),
	}))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, res := h.actions.ListOrders(r.Context())
	if !res.Success {
		writeJSON(w, queryStatus(res), res)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, res := h.actions.GetOrder(r.Context(), chi.URLParam(r, "orderId"))
	if !res.Success {
		writeJSON(w, queryStatus(res), res)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type syncUserRequest struct {
	ClerkID string `json:"clerkId"`
	Name    string `json:"name"`
}

func (h *Handler) SyncUser(w http.ResponseWriter, r *http.Request) {
	var req syncUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := h.actions.SyncUser(r.Context(), req.ClerkID, req.Name)
	if !res.Success && res.Code == actions.CodeInvalidInput {
		writeJSON(w, http.StatusBadRequest, res)
		return
	}
	writeResult(w, res)
}

func (h *Handler) readError(w http.ResponseWriter, op string, err error) {
	h.logger.Printf("%s: %v", op, err)
	if errors.Is(err, db.ErrBackendUnavailable) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return false
	}
	return true
}

// writeResult reports business failures in the body with 200. Only a missing
// identity changes the status code.
func writeResult(w http.ResponseWriter, res actions.Result) {
	status := http.StatusOK
	if res.Code == actions.CodeUnauthenticated {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, res)
}

func queryStatus(res actions.Result) int {
	switch res.Code {
	case actions.CodeUnauthenticated:
		return http.StatusUnauthorized
	case actions.CodeNotFound:
		return http.StatusNotFound
	case actions.CodeBackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
