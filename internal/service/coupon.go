package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/repository"
)

var hundred = decimal.NewFromInt(100)

type CouponService struct {
	coupons CouponRepo
	clock   Clock
	newID   IDGenerator
}

func NewCouponService(coupons CouponRepo, clock Clock, newID IDGenerator) *CouponService {
	return &CouponService{coupons: coupons, clock: clock, newID: newID}
}

// AppliedCoupon is a successful validation.
type AppliedCoupon struct {
	Code     string
	Discount int64
}

// Validate checks code against the trusted cart total and items and computes
// the discount. It never writes: usage is consumed when the order is paid.
// Checks run in a fixed order: not found (unknown or inactive), expired,
// usage exhausted, minimum not met, not applicable.
func (s *CouponService) Validate(ctx context.Context, code string, cartTotal int64, items []models.CouponItem) (AppliedCoupon, error) {
	code = models.NormalizeCode(code)
	if code == "" {
		return AppliedCoupon{}, apperrors.New(apperrors.CodeCouponNotFound, "coupon not found")
	}

	c, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return AppliedCoupon{}, notFound(err, apperrors.CodeCouponNotFound, "coupon not found")
	}
	if !c.IsActive {
		return AppliedCoupon{}, apperrors.New(apperrors.CodeCouponNotFound, "coupon not found")
	}
	if c.ExpiresAt != nil && s.clock.now().After(*c.ExpiresAt) {
		return AppliedCoupon{}, apperrors.New(apperrors.CodeCouponExpired, "coupon has expired")
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return AppliedCoupon{}, apperrors.New(apperrors.CodeCouponUsageExceeded, "coupon usage limit reached")
	}
	if c.MinimumCartTotal != nil && cartTotal < *c.MinimumCartTotal {
		return AppliedCoupon{}, apperrors.WithMetadata(apperrors.CodeCouponMinimumNotMet, "cart total below coupon minimum",
			map[string]string{"minimumCartTotal": fmt.Sprint(*c.MinimumCartTotal)})
	}
	if c.Restricted() && !matchesRestriction(*c, items) {
		return AppliedCoupon{}, apperrors.New(apperrors.CodeCouponNotApplicable, "coupon does not apply to these items")
	}

	return AppliedCoupon{Code: c.Code, Discount: couponDiscount(*c, cartTotal)}, nil
}

// couponDiscount never exceeds cartTotal so the total cannot go negative.
func couponDiscount(c models.Coupon, cartTotal int64) int64 {
	if cartTotal <= 0 {
		return 0
	}
	var discount int64
	switch c.DiscountType {
	case models.DiscountPercentage:
		// decimal.Round rounds half away from zero.
		discount = decimal.NewFromInt(cartTotal).Mul(c.Value).Div(hundred).Round(0).IntPart()
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	case models.DiscountFixed:
		discount = c.Value.Round(0).IntPart()
	}
	if discount > cartTotal {
		discount = cartTotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

func matchesRestriction(c models.Coupon, items []models.CouponItem) bool {
	products := make(map[string]struct{}, len(c.ProductIDs))
	for _, id := range c.ProductIDs {
		products[id] = struct{}{}
	}
	categories := make(map[string]struct{}, len(c.CategoryIDs))
	for _, id := range c.CategoryIDs {
		categories[id] = struct{}{}
	}
	for _, it := range items {
		if _, ok := products[it.ProductID]; ok {
			return true
		}
		if _, ok := categories[it.CategoryID]; ok && it.CategoryID != "" {
			return true
		}
	}
	return false
}

// Consume records one use. It must run inside the transaction that marks the
// order paid.
func (s *CouponService) Consume(ctx context.Context, code string) error {
	if err := s.coupons.IncrementUsage(ctx, models.NormalizeCode(code)); err != nil {
		return notFound(err, apperrors.CodeCouponNotFound, "coupon not found")
	}
	return nil
}

type CouponInput struct {
	Code             string
	DiscountType     models.DiscountType
	Value            decimal.Decimal
	MinimumCartTotal *int64
	MaxDiscount      *int64
	ExpiresAt        *time.Time
	UsageLimit       *int
	IsActive         *bool
	ProductIDs       []string
	CategoryIDs      []string
}

func (s *CouponService) Create(ctx context.Context, in CouponInput) (*models.Coupon, error) {
	in.Code = models.NormalizeCode(in.Code)
	if err := validateCoupon(in); err != nil {
		return nil, err
	}
	now := s.clock.now()
	c := &models.Coupon{
		ID:               s.newID.next(),
		Code:             in.Code,
		DiscountType:     in.DiscountType,
		Value:            in.Value,
		MinimumCartTotal: in.MinimumCartTotal,
		MaxDiscount:      in.MaxDiscount,
		ExpiresAt:        in.ExpiresAt,
		UsageLimit:       in.UsageLimit,
		IsActive:         in.IsActive == nil || *in.IsActive,
		ProductIDs:       in.ProductIDs,
		CategoryIDs:      in.CategoryIDs,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.coupons.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.WithMetadata(apperrors.CodeConflict, "coupon code already exists", map[string]string{"field": "code"})
		}
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	return c, nil
}

// Update replaces the editable fields of the coupon identified by code.
func (s *CouponService) Update(ctx context.Context, code string, in CouponInput) (*models.Coupon, error) {
	in.Code = models.NormalizeCode(code)
	if err := validateCoupon(in); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, in.Code)
	if err != nil {
		return nil, err
	}
	c.DiscountType = in.DiscountType
	c.Value = in.Value
	c.MinimumCartTotal = in.MinimumCartTotal
	c.MaxDiscount = in.MaxDiscount
	c.ExpiresAt = in.ExpiresAt
	c.UsageLimit = in.UsageLimit
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	c.ProductIDs = in.ProductIDs
	c.CategoryIDs = in.CategoryIDs
	c.UpdatedAt = s.clock.now()
	if err := s.coupons.Update(ctx, c); err != nil {
		return nil, notFound(err, apperrors.CodeCouponNotFound, "coupon not found")
	}
	return c, nil
}

// Deactivate retires a coupon. Coupons are never deleted because past orders
// reference them.
func (s *CouponService) Deactivate(ctx context.Context, code string) error {
	c, err := s.Get(ctx, code)
	if err != nil {
		return err
	}
	if !c.IsActive {
		return nil
	}
	c.IsActive = false
	c.UpdatedAt = s.clock.now()
	if err := s.coupons.Update(ctx, c); err != nil {
		return notFound(err, apperrors.CodeCouponNotFound, "coupon not found")
	}
	return nil
}

func (s *CouponService) Get(ctx context.Context, code string) (*models.Coupon, error) {
	c, err := s.coupons.FindByCode(ctx, models.NormalizeCode(code))
	if err != nil {
		return nil, notFound(err, apperrors.CodeCouponNotFound, "coupon not found")
	}
	return c, nil
}

func (s *CouponService) List(ctx context.Context) ([]models.Coupon, error) {
	return s.coupons.List(ctx)
}

func validateCoupon(in CouponInput) error {
	field := func(name, msg string) error {
		return apperrors.WithMetadata(apperrors.CodeValidation, msg, map[string]string{"field": name})
	}
	switch {
	case in.Code == "":
		return field("code", "code is required")
	case in.DiscountType != models.DiscountPercentage && in.DiscountType != models.DiscountFixed:
		return field("discountType", "discount type must be percentage or fixed")
	case !in.Value.IsPositive():
		return field("value", "value must be positive")
	case in.DiscountType == models.DiscountPercentage && in.Value.GreaterThan(hundred):
		return field("value", "percentage must not exceed 100")
	case in.MinimumCartTotal != nil && *in.MinimumCartTotal < 0:
		return field("minimumCartTotal", "minimum cart total must not be negative")
	case in.MaxDiscount != nil && *in.MaxDiscount <= 0:
		return field("maxDiscount", "max discount must be positive")
	case in.UsageLimit != nil && *in.UsageLimit < 0:
		return field("usageLimit", "usage limit must not be negative")
	}
	return nil
}
