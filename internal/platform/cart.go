package platform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
)

// The cart endpoints return the full cart document with each line's
// product denormalized. Lines are flattened into domain.LineItem here so
// nothing above the client touches the wire shape.

type wireProduct struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

type wireCartItem struct {
	Product   wireProduct `json:"product"`
	VariantID string      `json:"variantId"`
	Quantity  int         `json:"quantity"`
	Price     int64       `json:"price"`
}

type wireCart struct {
	Items       []wireCartItem `json:"items"`
	TotalAmount int64          `json:"totalAmount"`
}

type cartResponse struct {
	Cart wireCart `json:"cart"`
}

func (wc wireCart) toDomain() (*domain.Cart, error) {
	cart := &domain.Cart{
		Items:       make([]domain.LineItem, 0, len(wc.Items)),
		TotalAmount: wc.TotalAmount,
	}
	for _, it := range wc.Items {
		li := domain.LineItem{
			ProductID:   it.Product.ID,
			VariantID:   it.VariantID,
			Quantity:    it.Quantity,
			UnitPrice:   it.Price,
			ProductName: it.Product.Name,
		}
		if len(it.Product.Images) > 0 {
			li.ImageURL = it.Product.Images[0].URL
		}
		cart.Items = append(cart.Items, li)
	}
	if cart.TotalAmount != cart.Subtotal() {
		return nil, fmt.Errorf("%w: server total %d != line fold %d",
			domain.ErrInconsistentCart, cart.TotalAmount, cart.Subtotal())
	}
	return cart, nil
}

func (c *Client) GetCart(ctx context.Context) (*domain.Cart, error) {
	var resp cartResponse
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Cart.toDomain()
}

type upsertLineRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// UpsertLine sets one line to the given quantity; quantity 0 removes it.
// The server replies with the whole resulting cart.
func (c *Client) UpsertLine(ctx context.Context, productID, variantID string, quantity int) (*domain.Cart, error) {
	req := upsertLineRequest{ProductID: productID, VariantID: variantID, Quantity: quantity}
	var resp cartResponse
	if err := c.do(ctx, http.MethodPost, "/cart", req, &resp); err != nil {
		return nil, err
	}
	return resp.Cart.toDomain()
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cart", nil, nil)
}

type mergeCartRequest struct {
	SessionID string `json:"sessionId"`
}

// MergeCart folds the guest session's server-side cart into the
// authenticated user's. The merge arithmetic (union, quantity summation,
// stock capping) happens server-side; the reply is the merged result.
func (c *Client) MergeCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var resp cartResponse
	if err := c.do(ctx, http.MethodPost, "/cart/merge", mergeCartRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return resp.Cart.toDomain()
}
