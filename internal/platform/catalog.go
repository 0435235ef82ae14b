package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
)

// Variant is one purchasable configuration of a product, with the price
// and stock the cart snapshots at add time.
type Variant struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Stock int    `json:"stock"`
}

type Product struct {
	ID       string    `json:"_id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Brand    string    `json:"brand"`
	Variants []Variant `json:"variants"`
	Images   []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// Variant looks up one variant by id.
func (p Product) Variant(variantID string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == variantID {
			return v, true
		}
	}
	return Variant{}, false
}

type productResponse struct {
	Product Product `json:"product"`
}

func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var resp productResponse
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &resp.Product, nil
}

type productListResponse struct {
	Products []Product `json:"products"`
}

func (c *Client) ListProducts(ctx context.Context, query url.Values) ([]Product, error) {
	path := "/products"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var resp productListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}
