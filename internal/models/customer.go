package models

import "time"

const RoleAdmin = "admin"

// Identity is what the auth provider tells us about the caller.
type Identity struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Email  string `json:"email"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

func (i Identity) Authenticated() bool { return i.UserID != "" }

// Customer tracks cumulative spend for loyalty tiers.
type Customer struct {
	UserID     string    `json:"userId"`
	Email      string    `json:"email"`
	TotalSpent int64     `json:"totalSpent"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// LoyaltyTier is one step of the loyalty ladder.
type LoyaltyTier struct {
	Name            string `json:"name"`
	MinSpent        int64  `json:"minSpent"`
	DiscountPercent int    `json:"discountPercent"`
}

// PriceAlert is unique per (Email, ProductID).
type PriceAlert struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	ProductID    string     `json:"productId"`
	TargetPrice  int64      `json:"targetPrice"`
	CurrentPrice int64      `json:"currentPrice"`
	Triggered    bool       `json:"triggered"`
	NotifiedAt   *time.Time `json:"notifiedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type NewsletterSubscriber struct {
	Email      string    `json:"email"`
	Subscribed bool      `json:"subscribed"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SiteSettings are the typed view of the site_settings key/value rows.
type SiteSettings struct {
	ShippingFee           int64 `json:"shippingFee"`
	FreeShippingThreshold int64 `json:"freeShippingThreshold"`
}

const (
	SettingShippingFee           = "shipping_fee"
	SettingFreeShippingThreshold = "free_shipping_threshold"
)
