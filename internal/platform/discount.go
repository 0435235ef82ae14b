package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DiscountValidation is the discount collaborator's verdict on a code at
// a given subtotal. The server is authoritative; a locally well-formed
// code is only advisory.
type DiscountValidation struct {
	Valid          bool   `json:"valid"`
	Message        string `json:"message,omitempty"`
	DiscountAmount int64  `json:"discountAmount,omitempty"`
}

// ValidateDiscount checks one code against the current subtotal. Codes
// are entered case-insensitively and normalized to upper case before the
// lookup.
func (c *Client) ValidateDiscount(ctx context.Context, code string, subtotal int64) (*DiscountValidation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return &DiscountValidation{Valid: false, Message: "empty discount code"}, nil
	}
	path := fmt.Sprintf("/discounts/%s/validate?subtotal=%d", url.PathEscape(code), subtotal)
	var resp DiscountValidation
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
