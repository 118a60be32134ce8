package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/identity"
)

func NewRouter(h *Handler, requestTimeout time.Duration, allowOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationID)
	if len(allowOrigins) > 0 {
		r.Use(CORS(allowOrigins))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}
	r.Use(identity.Middleware)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/popular", h.PopularProducts)
			r.Get("/{productId}", h.GetProduct)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddToCart)
			r.Patch("/items/{cartItemId}", h.UpdateCartItem)
			r.Delete("/items/{cartItemId}", h.RemoveCartItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.CreateOrder)
			r.Get("/", h.ListOrders)
			r.Get("/{orderId}", h.GetOrder)
		})

		r.Post("/users/sync", h.SyncUser)
	})

	return otelhttp.NewHandler(r, "storefront-http")
}
