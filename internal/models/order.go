package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Reached reports whether s is at or past target on the forward chain
// pending -> paid -> shipped -> completed. Cancelled reaches nothing.
func (s OrderStatus) Reached(target OrderStatus) bool {
	return s != OrderCancelled && target != OrderCancelled && statusRank[s] >= statusRank[target]
}

var statusRank = map[OrderStatus]int{
	OrderPending:   0,
	OrderPaid:      1,
	OrderShipped:   2,
	OrderCompleted: 3,
}

type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "card"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

const (
	CancelReasonUser          = "user"
	CancelReasonExpired       = "expired"
	CancelReasonPaymentFailed = "payment_failed"
)

// Order keeps a snapshot of what was bought. Totals are fixed at creation.
type Order struct {
	ID               string        `json:"id"`
	UserID           *string       `json:"userId,omitempty"`
	CustomerName     string        `json:"customerName"`
	CustomerEmail    string        `json:"customerEmail"`
	CustomerPhone    string        `json:"customerPhone,omitempty"`
	ShippingAddress  string        `json:"shippingAddress"`
	Items            []OrderItem   `json:"items"`
	Subtotal         int64         `json:"subtotal"`
	CouponDiscount   int64         `json:"couponDiscount"`
	LoyaltyDiscount  int64         `json:"loyaltyDiscount"`
	ShippingCost     int64         `json:"shippingCost"`
	TotalPrice       int64         `json:"totalPrice"`
	Status           OrderStatus   `json:"status"`
	PaymentMethod    PaymentMethod `json:"paymentMethod"`
	PaymentReference *string       `json:"paymentReference,omitempty"`
	CouponCode       *string       `json:"couponCode,omitempty"`
	CancelReason     *string       `json:"cancelReason,omitempty"`
	PaidAt           *time.Time    `json:"paidAt,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// OwnedBy reports whether the order was placed by the given user.
func (o Order) OwnedBy(userID string) bool {
	return userID != "" && o.UserID != nil && *o.UserID == userID
}

// OrderItem is a line snapshot: name and unit price at the time of ordering.
type OrderItem struct {
	ProductID       string            `json:"productId"`
	VariantID       *string           `json:"variantId,omitempty"`
	Name            string            `json:"name"`
	UnitPrice       int64             `json:"unitPrice"`
	Quantity        int               `json:"quantity"`
	SelectedOptions map[string]string `json:"selectedOptions,omitempty"`
}

// OrderFilter narrows admin listings and exports.
type OrderFilter struct {
	Status *OrderStatus
	From   *time.Time
	To     *time.Time
	Limit  int
}
