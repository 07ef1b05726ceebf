package models

import "time"

type GiftCardStatus string

const (
	GiftCardPending  GiftCardStatus = "pending"
	GiftCardActive   GiftCardStatus = "active"
	GiftCardRedeemed GiftCardStatus = "redeemed"
	GiftCardExpired  GiftCardStatus = "expired"
)

// GiftCard holds a balance that is debited over one or more redemptions.
// Invariant: 0 <= Balance <= Amount.
type GiftCard struct {
	ID        string         `json:"id"`
	Code      string         `json:"code"`
	Amount    int64          `json:"amount"`
	Balance   int64          `json:"balance"`
	Status    GiftCardStatus `json:"status"`
	ExpiresAt time.Time      `json:"expiresAt"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// GiftCardRedemption is written together with the balance decrement, never alone.
type GiftCardRedemption struct {
	ID         string    `json:"id"`
	GiftCardID string    `json:"giftCardId"`
	OrderID    *string   `json:"orderId,omitempty"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"createdAt"`
}
