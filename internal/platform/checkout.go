package platform

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
)

type wireLineRef struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

func toLineRefs(lines []domain.LineItem) []wireLineRef {
	refs := make([]wireLineRef, 0, len(lines))
	for _, li := range lines {
		refs = append(refs, wireLineRef{ProductID: li.ProductID, VariantID: li.VariantID, Quantity: li.Quantity})
	}
	return refs
}

type previewRequest struct {
	CartItems    []wireLineRef `json:"cartItems"`
	DiscountCode string        `json:"discountCode,omitempty"`
	PointsToUse  int           `json:"pointsToUse"`
}

type previewResponse struct {
	Preview domain.PricingPreview `json:"preview"`
}

// Preview asks the pricing collaborator for authoritative totals. The
// reply is advisory until the server re-validates at submission.
func (c *Client) Preview(ctx context.Context, lines []domain.LineItem, discountCode string, pointsToUse int) (*domain.PricingPreview, error) {
	req := previewRequest{
		CartItems:    toLineRefs(lines),
		DiscountCode: discountCode,
		PointsToUse:  pointsToUse,
	}
	var resp previewResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/preview", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Preview, nil
}

// CheckoutRequest is the order submission payload. The idempotency key
// lets the server deduplicate a resubmission after an ambiguous failure
// (timeout after the order was actually committed).
type CheckoutRequest struct {
	IdempotencyKey  string                 `json:"idempotencyKey"`
	CartItems       []wireLineRef          `json:"cartItems"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   domain.PaymentMethod   `json:"paymentMethod"`
	DiscountCode    string                 `json:"discountCode,omitempty"`
	PointsToUse     int                    `json:"pointsToUse,omitempty"`
	GuestInfo       *domain.GuestInfo      `json:"guestInfo,omitempty"`
}

// CheckoutResult carries the created order and, for guest checkouts, the
// credential of the account the server created.
type CheckoutResult struct {
	Order domain.Order `json:"order"`
	Token string       `json:"token,omitempty"`
	User  *domain.User `json:"user,omitempty"`
}

// NewCheckoutRequest builds the submission payload from the lines the
// user reviewed.
func NewCheckoutRequest(lines []domain.LineItem, addr domain.ShippingAddress, method domain.PaymentMethod, discountCode string, pointsToUse int, guest *domain.GuestInfo) CheckoutRequest {
	return CheckoutRequest{
		IdempotencyKey:  uuid.NewString(),
		CartItems:       toLineRefs(lines),
		ShippingAddress: addr,
		PaymentMethod:   method,
		DiscountCode:    discountCode,
		PointsToUse:     pointsToUse,
		GuestInfo:       guest,
	}
}

// Checkout submits the order. A 409 means the pricing inputs went stale
// between preview and submission (discount expired, points spent, stock
// gone) and maps to domain.ErrStalePricing so the orchestrator can force
// a fresh preview.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	var resp CheckoutResult
	if err := c.do(ctx, http.MethodPost, "/checkout", req, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			return nil, &StaleSubmissionError{Message: apiErr.Message}
		}
		return nil, err
	}
	return &resp, nil
}

// StaleSubmissionError is a submission rejected because server-side
// pricing moved underneath the client.
type StaleSubmissionError struct {
	Message string
}

func (e *StaleSubmissionError) Error() string { return e.Message }

func (e *StaleSubmissionError) Is(target error) bool {
	return target == domain.ErrStalePricing
}
