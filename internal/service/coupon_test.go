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

func TestCouponDiscountMath(t *testing.T) {
	tests := []struct {
		name   string
		coupon models.Coupon
		total  int64
		want   int64
	}{
		{"percentage", models.Coupon{DiscountType: models.DiscountPercentage, Value: decimal.NewFromInt(10)}, 100_000, 10_000},
		{"percentage rounds half up", models.Coupon{DiscountType: models.DiscountPercentage, Value: decimal.NewFromInt(15)}, 1_010, 152},
		{"fractional percent", models.Coupon{DiscountType: models.DiscountPercentage, Value: decimal.RequireFromString("12.5")}, 1_000, 125},
		{"percentage cap", models.Coupon{DiscountType: models.DiscountPercentage, Value: decimal.NewFromInt(50), MaxDiscount: ptr(int64(2_000))}, 10_000, 2_000},
		{"hundred percent capped at total", models.Coupon{DiscountType: models.DiscountPercentage, Value: decimal.NewFromInt(100)}, 7_777, 7_777},
		{"fixed", models.Coupon{DiscountType: models.DiscountFixed, Value: decimal.NewFromInt(1_500)}, 10_000, 1_500},
		{"fixed capped at total", models.Coupon{DiscountType: models.DiscountFixed, Value: decimal.NewFromInt(5_000)}, 3_000, 3_000},
		{"empty cart", models.Coupon{DiscountType: models.DiscountFixed, Value: decimal.NewFromInt(5_000)}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, couponDiscount(tt.coupon, tt.total))
		})
	}
}

func TestValidateCheckOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	past := testNow.Add(-time24h)

	// Expired and exhausted: expiry is reported first.
	_, err := env.coupons.Create(ctx, CouponInput{
		Code: "OLD", DiscountType: models.DiscountFixed, Value: decimal.NewFromInt(100),
		ExpiresAt: &past, UsageLimit: ptr(0),
	})
	require.NoError(t, err)
	// Exhausted and under minimum: usage is reported first.
	_, err = env.coupons.Create(ctx, CouponInput{
		Code: "USED", DiscountType: models.DiscountFixed, Value: decimal.NewFromInt(100),
		UsageLimit: ptr(0), MinimumCartTotal: ptr(int64(1_000_000)),
	})
	require.NoError(t, err)
	// Under minimum and restricted: minimum is reported first.
	_, err = env.coupons.Create(ctx, CouponInput{
		Code: "BIG", DiscountType: models.DiscountFixed, Value: decimal.NewFromInt(100),
		MinimumCartTotal: ptr(int64(1_000_000)), ProductIDs: []string{"elsewhere"},
	})
	require.NoError(t, err)
	_, err = env.coupons.Create(ctx, CouponInput{
		Code: "ONLYX", DiscountType: models.DiscountFixed, Value: decimal.NewFromInt(100), ProductIDs: []string{"x"},
	})
	require.NoError(t, err)
	_, err = env.coupons.Create(ctx, CouponInput{
		Code: "OFF", DiscountType: models.DiscountFixed, Value: decimal.NewFromInt(100), IsActive: ptr(false),
	})
	require.NoError(t, err)

	items := []models.CouponItem{{ProductID: "p1", CategoryID: "c1"}}
	tests := []struct {
		code string
		want apperrors.Code
	}{
		{"", apperrors.CodeCouponNotFound},
		{"NOPE", apperrors.CodeCouponNotFound},
		{"OFF", apperrors.CodeCouponNotFound},
		{"OLD", apperrors.CodeCouponExpired},
		{"USED", apperrors.CodeCouponUsageExceeded},
		{"BIG", apperrors.CodeCouponMinimumNotMet},
		{"ONLYX", apperrors.CodeCouponNotApplicable},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			_, err := env.coupons.Validate(ctx, tt.code, 10_000, items)
			assert.Equal(t, tt.want, apperrors.CodeOf(err))
		})
	}
}

func TestValidateHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.percentCoupon(t, "SAVE10", 10)

	for i := 0; i < 3; i++ {
		applied, err := env.coupons.Validate(ctx, " save10 ", 20_000, nil)
		require.NoError(t, err)
		assert.Equal(t, AppliedCoupon{Code: "SAVE10", Discount: 2_000}, applied)
	}
	c, err := env.coupons.Get(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 0, c.UsageCount)
}

func TestUsageLimitReachedAfterConsume(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.coupons.Create(ctx, CouponInput{
		Code: "ONCE", DiscountType: models.DiscountPercentage, Value: decimal.NewFromInt(5), UsageLimit: ptr(1),
	})
	require.NoError(t, err)

	_, err = env.coupons.Validate(ctx, "ONCE", 10_000, nil)
	require.NoError(t, err)
	require.NoError(t, env.coupons.Consume(ctx, "ONCE"))

	_, err = env.coupons.Validate(ctx, "ONCE", 10_000, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCouponUsageExceeded))
}

func TestCouponAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.percentCoupon(t, "SPRING", 20)

	_, err := env.coupons.Create(ctx, CouponInput{Code: "spring", DiscountType: models.DiscountFixed, Value: decimal.NewFromInt(1)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = env.coupons.Create(ctx, CouponInput{Code: "TOOMUCH", DiscountType: models.DiscountPercentage, Value: decimal.NewFromInt(101)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	updated, err := env.coupons.Update(ctx, "spring", CouponInput{
		DiscountType: models.DiscountPercentage, Value: decimal.NewFromInt(25), MaxDiscount: ptr(int64(5_000)),
	})
	require.NoError(t, err)
	assert.True(t, updated.Value.Equal(decimal.NewFromInt(25)))
	assert.True(t, updated.IsActive)

	require.NoError(t, env.coupons.Deactivate(ctx, "SPRING"))
	_, err = env.coupons.Validate(ctx, "SPRING", 10_000, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCouponNotFound))

	list, err := env.coupons.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
