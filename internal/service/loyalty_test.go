package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

func TestTierForIsMonotonic(t *testing.T) {
	e := NewLoyaltyEngine(nil)
	prev := -1
	for spent := int64(0); spent <= 1_200_000; spent += 25_000 {
		pct := e.TierFor(spent).DiscountPercent
		assert.GreaterOrEqual(t, pct, prev, "spent=%d", spent)
		prev = pct
	}
}

func TestTierBoundaries(t *testing.T) {
	e := NewLoyaltyEngine([]models.LoyaltyTier{
		{Name: "Gold", MinSpent: 300_000, DiscountPercent: 5},
		{Name: "Bronze", MinSpent: 0},
		{Name: "Silver", MinSpent: 100_000, DiscountPercent: 3},
	})

	assert.Equal(t, "Bronze", e.TierFor(99_999).Name)
	assert.Equal(t, "Silver", e.TierFor(100_000).Name)
	assert.Equal(t, "Gold", e.TierFor(5_000_000).Name)

	next, remaining, ok := e.NextTier(120_000)
	require.True(t, ok)
	assert.Equal(t, "Gold", next.Name)
	assert.Equal(t, int64(180_000), remaining)

	_, _, ok = e.NextTier(300_000)
	assert.False(t, ok)
}

func TestLoyaltyStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	anon, err := env.loyalty.Status(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Bronze", anon.Tier.Name)
	require.NotNil(t, anon.NextTier)
	assert.Equal(t, int64(100_000), anon.RemainingToNext)

	env.customerWithSpend(t, "u1", 150_000)
	st, err := env.loyalty.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(150_000), st.TotalSpent)
	assert.Equal(t, "Silver", st.Tier.Name)
	assert.Equal(t, int64(150_000), st.RemainingToNext)
}
