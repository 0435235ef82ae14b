package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/juliodz03/websitetmdt-client/internal/session"
)

type Handlers struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Auth     *AuthHandler
	Catalog  *CatalogHandler
}

// NewRouter assembles the storefront API. Every route below /api runs
// through the session middleware, so handlers always find a session and
// platform credentials on the request context.
func NewRouter(sessions *session.Manager, h Handlers, serviceName string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(SessionMiddleware(sessions))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Auth.Login)
			r.Post("/register", h.Auth.Register)
			r.Post("/logout", h.Auth.Logout)
			r.Get("/me", h.Auth.Me)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Catalog.ListProducts)
			r.Get("/{productID}", h.Catalog.GetProduct)
			r.Get("/{productID}/reviews/recent", h.Catalog.RecentReviews)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items", h.Cart.UpdateQuantity)
			r.Delete("/items/{productID}/{variantID}", h.Cart.RemoveItem)
			r.Delete("/", h.Cart.ClearCart)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", h.Checkout.Start)
			r.Put("/shipping", h.Checkout.SetShipping)
			r.Put("/payment", h.Checkout.SetPayment)
			r.Post("/next", h.Checkout.Next)
			r.Post("/back", h.Checkout.Back)
			r.Put("/pricing", h.Checkout.SetPricing)
			r.Post("/preview", h.Checkout.RefreshPreview)
			r.Post("/submit", h.Checkout.Submit)
			r.Delete("/", h.Checkout.Cancel)
		})

		r.Get("/discounts/{code}/validate", h.Checkout.ValidateDiscount)
	})

	return otelhttp.NewHandler(r, serviceName)
}
