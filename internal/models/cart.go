package models

// CartLineItem is one line of a client cart. Price is accepted for wire
// compatibility and never read by pricing.
type CartLineItem struct {
	ProductID       string            `json:"productId" validate:"required"`
	VariantID       *string           `json:"variantId,omitempty"`
	Quantity        int               `json:"quantity" validate:"gt=0"`
	SelectedOptions map[string]string `json:"selectedOptions,omitempty"`
	Price           *int64            `json:"price,omitempty"`
}

// CouponItem is the view of a priced cart line the coupon engine matches restrictions against.
type CouponItem struct {
	ProductID  string
	CategoryID string
}
