package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is a code-based discount rule. Value is a percent for percentage
// coupons and whole currency units for fixed coupons.
type Coupon struct {
	ID               string          `json:"id"`
	Code             string          `json:"code"`
	DiscountType     DiscountType    `json:"discountType"`
	Value            decimal.Decimal `json:"value"`
	MinimumCartTotal *int64          `json:"minimumCartTotal,omitempty"`
	MaxDiscount      *int64          `json:"maxDiscount,omitempty"`
	ExpiresAt        *time.Time      `json:"expiresAt,omitempty"`
	UsageLimit       *int            `json:"usageLimit,omitempty"`
	UsageCount       int             `json:"usageCount"`
	IsActive         bool            `json:"isActive"`
	ProductIDs       []string        `json:"productIds,omitempty"`
	CategoryIDs      []string        `json:"categoryIds,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Restricted reports whether the coupon only applies to listed products or categories.
func (c Coupon) Restricted() bool {
	return len(c.ProductIDs) > 0 || len(c.CategoryIDs) > 0
}

// NormalizeCode trims and upper-cases a coupon or gift card code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
