package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

func TestQuoteCouponThenLoyalty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "jacket", 50_000, 10)
	env.percentCoupon(t, "SAVE10", 10)
	env.customerWithSpend(t, "gold-user", 300_000)

	q, err := env.pricing.Quote(ctx, QuoteRequest{
		Items:      []models.CartLineItem{line(p.ID, 2)},
		UserID:     "gold-user",
		CouponCode: "save10",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(100_000), q.Subtotal)
	assert.Equal(t, "SAVE10", q.CouponCode)
	assert.Equal(t, int64(10_000), q.CouponDiscount)
	assert.Equal(t, 5, q.LoyaltyPercent)
	assert.Equal(t, int64(4_500), q.LoyaltyDiscount)
	assert.Equal(t, int64(14_500), q.Discount)
	assert.Equal(t, int64(0), q.ShippingCost)
	assert.Equal(t, int64(85_500), q.Total)
}

func TestQuoteOrderOfApplicationIsObservable(t *testing.T) {
	// A fixed 10000 coupon with 5% loyalty on 100000 gives 85500.
	// Loyalty first would give 85000.
	loyalty, shipping, total := applyDiscounts(100_000, 10_000, 5, models.SiteSettings{ShippingFee: 1490, FreeShippingThreshold: 20_000})
	assert.Equal(t, int64(4_500), loyalty)
	assert.Equal(t, int64(0), shipping)
	assert.Equal(t, int64(85_500), total)
}

func TestApplyDiscountsShipping(t *testing.T) {
	settings := models.SiteSettings{ShippingFee: 1490, FreeShippingThreshold: 20_000}

	tests := []struct {
		name         string
		subtotal     int64
		coupon       int64
		loyalty      int
		settings     models.SiteSettings
		wantShipping int64
		wantTotal    int64
	}{
		{"below threshold", 19_999, 0, 0, settings, 1490, 21_489},
		{"at threshold", 20_000, 0, 0, settings, 0, 20_000},
		{"discount drops below threshold", 21_000, 2_000, 0, settings, 1490, 20_490},
		{"zero threshold always charges", 500_000, 0, 0, models.SiteSettings{ShippingFee: 990}, 990, 500_990},
		{"coupon larger than cart", 5_000, 9_000, 3, settings, 1490, 1490},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, shipping, total := applyDiscounts(tt.subtotal, tt.coupon, tt.loyalty, tt.settings)
			assert.Equal(t, tt.wantShipping, shipping)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestQuoteUsesCatalogPrices(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "mug", 4_000, 5)
	_, err := env.catalog.UpdateProduct(context.Background(), p.ID, ProductUpdate{SalePrice: ptr(int64(3_000))})
	require.NoError(t, err)

	item := line(p.ID, 2)
	item.Price = ptr(int64(1))
	q, err := env.pricing.Quote(context.Background(), QuoteRequest{Items: []models.CartLineItem{item}})
	require.NoError(t, err)

	assert.Equal(t, int64(3_000), q.Lines[0].UnitPrice)
	assert.Equal(t, int64(6_000), q.Subtotal)
	assert.Equal(t, int64(6_000+1_490), q.Total)
}

func TestQuoteVariantPricing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "shirt", 8_000, 0)
	v, err := env.catalog.CreateVariant(ctx, p.ID, VariantInput{Name: "XL", Price: ptr(int64(9_000)), Stock: 3})
	require.NoError(t, err)

	q, err := env.pricing.Quote(ctx, QuoteRequest{Items: []models.CartLineItem{
		{ProductID: p.ID, VariantID: &v.ID, Quantity: 2, SelectedOptions: map[string]string{"size": "XL"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "shirt - XL", q.Lines[0].Name)
	assert.Equal(t, int64(18_000), q.Subtotal)
	assert.Equal(t, map[string]string{"size": "XL"}, q.Lines[0].SelectedOptions)
}

func TestQuoteRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "lamp", 10_000, 3)
	other := env.product(t, "chair", 10_000, 3)
	archived := env.product(t, "old", 10_000, 3)
	require.NoError(t, env.catalog.ArchiveProduct(ctx, archived.ID))
	v, err := env.catalog.CreateVariant(ctx, other.ID, VariantInput{Name: "Red", Stock: 1})
	require.NoError(t, err)

	tests := []struct {
		name  string
		items []models.CartLineItem
		want  apperrors.Code
	}{
		{"empty cart", nil, apperrors.CodeValidation},
		{"zero quantity", []models.CartLineItem{line(p.ID, 0)}, apperrors.CodeValidation},
		{"unknown product", []models.CartLineItem{line("missing", 1)}, apperrors.CodeNotFound},
		{"archived", []models.CartLineItem{line(archived.ID, 1)}, apperrors.CodeProductArchived},
		{"variant of another product", []models.CartLineItem{{ProductID: p.ID, VariantID: &v.ID, Quantity: 1}}, apperrors.CodeVariantMismatch},
		{"over stock", []models.CartLineItem{line(p.ID, 4)}, apperrors.CodeInsufficientStock},
		{"repeated lines over stock", []models.CartLineItem{line(p.ID, 2), line(p.ID, 2)}, apperrors.CodeInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.pricing.Quote(ctx, QuoteRequest{Items: tt.items})
			require.Error(t, err)
			assert.Equal(t, tt.want, apperrors.CodeOf(err))
		})
	}
}

func TestQuoteInsufficientStockReportsAvailable(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "vase", 10_000, 2)

	_, err := env.pricing.Quote(context.Background(), QuoteRequest{Items: []models.CartLineItem{line(p.ID, 3)}})
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "2", appErr.Metadata["available"])
	assert.Equal(t, p.ID, appErr.Metadata["productId"])
}

func TestQuoteRestrictedCoupon(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "book", 10_000, 5)
	_, err := env.coupons.Create(ctx, CouponInput{
		Code: "GAMES", DiscountType: models.DiscountFixed, Value: decimal.NewFromInt(500), CategoryIDs: []string{"games"},
	})
	require.NoError(t, err)

	_, err = env.pricing.Quote(ctx, QuoteRequest{Items: []models.CartLineItem{line(p.ID, 1)}, CouponCode: "GAMES"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCouponNotApplicable))
}

func TestCheckCoupon(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "lamp", 12_000, 4)
	env.percentCoupon(t, "LIGHT20", 20)

	res, err := env.pricing.CheckCoupon(ctx, " light20 ", []models.CartLineItem{line(p.ID, 1)})
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Equal(t, "LIGHT20", res.Code)
	assert.Equal(t, int64(12_000), res.Subtotal)
	assert.Equal(t, int64(2_400), res.Discount)

	res, err = env.pricing.CheckCoupon(ctx, "NOPE", []models.CartLineItem{line(p.ID, 1)})
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, string(apperrors.CodeCouponNotFound), res.Reason)

	_, err = env.pricing.CheckCoupon(ctx, "LIGHT20", []models.CartLineItem{line(p.ID, 9)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientStock))
}
