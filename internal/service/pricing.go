package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

type QuoteRequest struct {
	Items      []models.CartLineItem
	UserID     string
	CouponCode string
}

type QuoteLine struct {
	ProductID       string            `json:"productId"`
	VariantID       *string           `json:"variantId,omitempty"`
	Name            string            `json:"name"`
	CategoryID      string            `json:"categoryId,omitempty"`
	UnitPrice       int64             `json:"unitPrice"`
	Quantity        int               `json:"quantity"`
	LineTotal       int64             `json:"lineTotal"`
	SelectedOptions map[string]string `json:"selectedOptions,omitempty"`
}

type Quote struct {
	Subtotal        int64       `json:"subtotal"`
	CouponCode      string      `json:"couponCode,omitempty"`
	CouponDiscount  int64       `json:"couponDiscount"`
	LoyaltyPercent  int         `json:"loyaltyPercent"`
	LoyaltyDiscount int64       `json:"loyaltyDiscount"`
	Discount        int64       `json:"discount"`
	ShippingCost    int64       `json:"shippingCost"`
	Total           int64       `json:"total"`
	Lines           []QuoteLine `json:"lines"`
}

// PricingService turns a client cart into trusted totals. It only reads;
// orders persist the result.
type PricingService struct {
	catalog  CatalogRepo
	coupons  *CouponService
	loyalty  *LoyaltyService
	settings *SettingsService
	clock    Clock
}

func NewPricingService(catalog CatalogRepo, coupons *CouponService, loyalty *LoyaltyService, settings *SettingsService, clock Clock) *PricingService {
	return &PricingService{
		catalog:  catalog,
		coupons:  coupons,
		loyalty:  loyalty,
		settings: settings,
		clock:    clock,
	}
}

// Quote prices the cart from live catalog prices. Client-sent prices are
// ignored. Discounts apply coupon first, then loyalty on the remainder, then
// shipping.
func (s *PricingService) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	lines, err := s.PriceLines(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	subtotal, couponItems := summarize(lines)

	q := &Quote{Subtotal: subtotal, Lines: lines}
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		applied, err := s.coupons.Validate(ctx, code, subtotal, couponItems)
		if err != nil {
			return nil, err
		}
		q.CouponCode = applied.Code
		q.CouponDiscount = applied.Discount
	}

	q.LoyaltyPercent, err = s.loyalty.DiscountPercent(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("loyalty tier: %w", err)
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	q.LoyaltyDiscount, q.ShippingCost, q.Total = applyDiscounts(subtotal, q.CouponDiscount, q.LoyaltyPercent, settings)
	q.Discount = q.CouponDiscount + q.LoyaltyDiscount
	return q, nil
}

// CheckCoupon answers the validate endpoint: the cart is priced from the
// catalog and the code checked against it. Coupon rejections come back as
// an invalid result, every other failure as an error.
func (s *PricingService) CheckCoupon(ctx context.Context, code string, items []models.CartLineItem) (models.CouponValidation, error) {
	lines, err := s.PriceLines(ctx, items)
	if err != nil {
		return models.CouponValidation{}, err
	}
	subtotal, couponItems := summarize(lines)
	res := models.CouponValidation{Code: models.NormalizeCode(code), Subtotal: subtotal}

	applied, err := s.coupons.Validate(ctx, code, subtotal, couponItems)
	if err != nil {
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) || !isCouponRejection(appErr.Code) {
			return models.CouponValidation{}, err
		}
		res.Reason = string(appErr.Code)
		res.Message = appErr.Message
		return res, nil
	}
	res.IsValid = true
	res.Discount = applied.Discount
	res.Message = "coupon applied"
	return res, nil
}

func isCouponRejection(code apperrors.Code) bool {
	switch code {
	case apperrors.CodeCouponNotFound,
		apperrors.CodeCouponExpired,
		apperrors.CodeCouponUsageExceeded,
		apperrors.CodeCouponMinimumNotMet,
		apperrors.CodeCouponNotApplicable:
		return true
	}
	return false
}

func summarize(lines []QuoteLine) (int64, []models.CouponItem) {
	var subtotal int64
	items := make([]models.CouponItem, 0, len(lines))
	for _, l := range lines {
		subtotal += l.LineTotal
		items = append(items, models.CouponItem{ProductID: l.ProductID, CategoryID: l.CategoryID})
	}
	return subtotal, items
}

// applyDiscounts takes the coupon discount off first, then the loyalty
// percentage of what remains, then adds shipping unless the discounted total
// reaches the free-shipping threshold. A zero threshold never grants free shipping.
func applyDiscounts(subtotal, couponDiscount int64, loyaltyPercent int, settings models.SiteSettings) (loyaltyDiscount, shipping, total int64) {
	afterCoupon := subtotal - couponDiscount
	if afterCoupon < 0 {
		afterCoupon = 0
	}
	if loyaltyPercent > 0 {
		loyaltyDiscount = decimal.NewFromInt(afterCoupon).
			Mul(decimal.NewFromInt(int64(loyaltyPercent))).
			Div(hundred).
			Round(0).
			IntPart()
	}
	merchandise := afterCoupon - loyaltyDiscount

	shipping = settings.ShippingFee
	if settings.FreeShippingThreshold > 0 && merchandise >= settings.FreeShippingThreshold {
		shipping = 0
	}
	return loyaltyDiscount, shipping, merchandise + shipping
}

// PriceLines resolves unit prices and checks stock, archival and variant
// ownership. Quantities of repeated lines are summed for the stock check.
func (s *PricingService) PriceLines(ctx context.Context, items []models.CartLineItem) ([]QuoteLine, error) {
	if len(items) == 0 {
		return nil, apperrors.WithMetadata(apperrors.CodeValidation, "cart is empty", map[string]string{"field": "items"})
	}

	now := s.clock.now()
	requested := make(map[string]int)
	lines := make([]QuoteLine, 0, len(items))
	for i, it := range items {
		if strings.TrimSpace(it.ProductID) == "" {
			return nil, apperrors.WithMetadata(apperrors.CodeValidation, "productId is required",
				map[string]string{"field": fmt.Sprintf("items[%d].productId", i)})
		}
		if it.Quantity <= 0 {
			return nil, apperrors.WithMetadata(apperrors.CodeValidation, "quantity must be positive",
				map[string]string{"field": fmt.Sprintf("items[%d].quantity", i)})
		}

		p, err := s.catalog.FindProduct(ctx, it.ProductID)
		if err != nil {
			return nil, notFound(err, apperrors.CodeNotFound, "product not found")
		}
		if p.IsArchived {
			return nil, stockError(apperrors.CodeProductArchived, "product is no longer available", p.ID)
		}

		unit := p.EffectivePrice(now)
		stock := p.Stock
		name := p.Name
		stockKey := p.ID
		if it.VariantID != nil {
			v, err := s.catalog.FindVariant(ctx, *it.VariantID)
			if err != nil {
				return nil, notFound(err, apperrors.CodeNotFound, "variant not found")
			}
			if v.ProductID != p.ID {
				return nil, stockError(apperrors.CodeVariantMismatch, "variant does not belong to product", p.ID)
			}
			if v.Price != nil {
				unit = *v.Price
			}
			stock = v.Stock
			name = p.Name + " - " + v.Name
			stockKey = p.ID + "/" + v.ID
		}

		requested[stockKey] += it.Quantity
		if requested[stockKey] > stock {
			e := stockError(apperrors.CodeInsufficientStock, "not enough stock", p.ID)
			e.Metadata["available"] = fmt.Sprint(stock)
			return nil, e
		}

		lines = append(lines, QuoteLine{
			ProductID:       p.ID,
			VariantID:       it.VariantID,
			Name:            name,
			CategoryID:      p.CategoryID,
			UnitPrice:       unit,
			Quantity:        it.Quantity,
			LineTotal:       unit * int64(it.Quantity),
			SelectedOptions: it.SelectedOptions,
		})
	}
	return lines, nil
}

func stockError(code apperrors.Code, msg, productID string) *apperrors.Error {
	return apperrors.WithMetadata(code, msg, map[string]string{"productId": productID})
}
