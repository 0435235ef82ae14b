package domain

// PricingPreview is the server-computed projection of order totals shown
// on the checkout summary. It is advisory: the server re-validates every
// field at submission time. Replaced wholesale on each refresh, never
// patched field by field.
type PricingPreview struct {
	Subtotal        int64  `json:"subtotal"`
	DiscountCode    string `json:"discountCode,omitempty"`
	DiscountAmount  int64  `json:"discountAmount"`
	PointsRequested int    `json:"pointsRequested"`
	PointsDiscount  int64  `json:"pointsDiscount"`
	TaxAmount       int64  `json:"taxAmount"`
	ShippingFee     int64  `json:"shippingFee"`
	TotalAmount     int64  `json:"totalAmount"`
	PointsEarned    int    `json:"pointsEarned"`
	DiscountValid   bool   `json:"discountValid"`
}
