package models

// CouponValidation is the answer of the coupon validate endpoint.
type CouponValidation struct {
	IsValid  bool   `json:"isValid"`
	Code     string `json:"code"`
	Discount int64  `json:"discount,omitempty"`
	Subtotal int64  `json:"subtotal"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message"`
}
