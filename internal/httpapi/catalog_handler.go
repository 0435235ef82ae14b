package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/juliodz03/websitetmdt-client/internal/platform"
	"github.com/juliodz03/websitetmdt-client/internal/realtime"
)

// CatalogHandler proxies product reads so the storefront talks to a
// single origin. Pricing shown here is informational; the cart keeps
// its own per-line snapshot.
type CatalogHandler struct {
	catalog *platform.Client
	reviews *realtime.Feed
	timeout time.Duration
	logger  *zap.Logger
}

func NewCatalogHandler(catalog *platform.Client, reviews *realtime.Feed, timeout time.Duration, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, reviews: reviews, timeout: timeout, logger: logger}
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx, r.URL.Query())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// RecentReviews serves the in-process review feed filled by the event
// consumer. Empty when no events arrived yet; never an upstream call.
func (h *CatalogHandler) RecentReviews(w http.ResponseWriter, r *http.Request) {
	reviews := h.reviews.Recent(chi.URLParam(r, "productID"))
	respondJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}
