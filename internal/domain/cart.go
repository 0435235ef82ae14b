package domain

// LineItem is one (product, variant) entry in a cart. UnitPrice is the
// price snapshot taken when the line was added, in VND.
type LineItem struct {
	ProductID   string `json:"productId"`
	VariantID   string `json:"variantId"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	ProductName string `json:"productName,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// LineKey identifies a line item inside a cart. At most one line per key.
type LineKey struct {
	ProductID string
	VariantID string
}

func (li LineItem) Key() LineKey {
	return LineKey{ProductID: li.ProductID, VariantID: li.VariantID}
}

type Cart struct {
	Items       []LineItem `json:"items"`
	TotalAmount int64      `json:"totalAmount"`
}

// Subtotal folds unit price over quantity for every line. TotalAmount is
// only ever assigned from this fold, never adjusted in place.
func (c Cart) Subtotal() int64 {
	var sum int64
	for _, li := range c.Items {
		sum += li.UnitPrice * int64(li.Quantity)
	}
	return sum
}

// ItemCount is the number of units across all lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, li := range c.Items {
		n += li.Quantity
	}
	return n
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Line returns the line for the given key, if present.
func (c Cart) Line(key LineKey) (LineItem, bool) {
	for _, li := range c.Items {
		if li.Key() == key {
			return li, true
		}
	}
	return LineItem{}, false
}

// Clone returns a deep copy so callers can hold a cart without sharing
// the backing slice with the store.
func (c Cart) Clone() Cart {
	out := Cart{TotalAmount: c.TotalAmount}
	if len(c.Items) > 0 {
		out.Items = make([]LineItem, len(c.Items))
		copy(out.Items, c.Items)
	}
	return out
}
