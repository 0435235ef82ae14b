package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/juliodz03/websitetmdt-client/internal/cart"
	"github.com/juliodz03/websitetmdt-client/internal/domain"
	"github.com/juliodz03/websitetmdt-client/internal/platform"
)

type CartHandler struct {
	catalog *platform.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(catalog *platform.Client, timeout time.Duration, logger *zap.Logger) *CartHandler {
	return &CartHandler{catalog: catalog, timeout: timeout, logger: logger}
}

type cartView struct {
	Cart      domain.Cart `json:"cart"`
	ItemCount int         `json:"itemCount"`
}

func viewOf(c domain.Cart) cartView {
	return cartView{Cart: c, ItemCount: c.ItemCount()}
}

// GetCart serves the optimistic projection. ?refresh=1 forces a server
// round trip first.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	if r.URL.Query().Get("refresh") != "" {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		if _, err := sess.Cart.Refresh(ctx); err != nil {
			respondDomainError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, viewOf(sess.Cart.Cart()))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// AddItem is the product page action: the quantity increments any
// existing line. The unit price is snapshotted from the catalog at add
// time.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" || req.VariantID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "productId and variantId are required")
		return
	}
	if req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at least 1")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	variant, ok := product.Variant(req.VariantID)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "variant not found")
		return
	}

	line := domain.LineItem{
		ProductID:   req.ProductID,
		VariantID:   req.VariantID,
		Quantity:    req.Quantity,
		UnitPrice:   variant.Price,
		ProductName: product.Name,
	}
	if len(product.Images) > 0 {
		line.ImageURL = product.Images[0].URL
	}

	newQty, err := sess.Cart.AddOrUpdateLine(line, cart.PolicyAdd)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := sess.Cart.SyncLine(ctx, line.Key(), newQty); err != nil {
		// optimistic state is kept; the client may retry the same action
		h.logger.Warn("cart sync failed after add", zap.Error(err))
	}
	respondJSON(w, http.StatusCreated, viewOf(sess.Cart.Cart()))
}

type updateQuantityRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// UpdateQuantity is the cart sidebar control: the quantity overwrites.
// Zero removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	key := domain.LineKey{ProductID: req.ProductID, VariantID: req.VariantID}
	existing, ok := sess.Cart.Cart().Line(key)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "line not in cart")
		return
	}
	existing.Quantity = req.Quantity

	newQty, err := sess.Cart.AddOrUpdateLine(existing, cart.PolicySet)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := sess.Cart.SyncLine(ctx, key, newQty); err != nil {
		h.logger.Warn("cart sync failed after update", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, viewOf(sess.Cart.Cart()))
}

// RemoveItem deletes one line; removing an absent line is a no-op.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	key := domain.LineKey{
		ProductID: chi.URLParam(r, "productID"),
		VariantID: chi.URLParam(r, "variantID"),
	}
	sess.Cart.RemoveLine(key)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := sess.Cart.SyncLine(ctx, key, 0); err != nil {
		h.logger.Warn("cart sync failed after remove", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, viewOf(sess.Cart.Cart()))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := sess.Cart.SyncClear(ctx); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(sess.Cart.Cart()))
}
