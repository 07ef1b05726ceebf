package service

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

func issueCard(t *testing.T, env *testEnv, amount int64, activate bool) *models.GiftCard {
	t.Helper()
	card, err := env.giftCards.Issue(context.Background(), IssueGiftCardInput{Amount: amount, Activate: activate})
	require.NoError(t, err)
	return card
}

func TestIssueGiftCard(t *testing.T) {
	env := newTestEnv(t)
	card := issueCard(t, env, 10_000, false)

	assert.Regexp(t, regexp.MustCompile(`^NEXU-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}$`), card.Code)
	assert.Equal(t, models.GiftCardPending, card.Status)
	assert.Equal(t, int64(10_000), card.Balance)
	assert.True(t, card.ExpiresAt.After(testNow))

	_, err := env.giftCards.Issue(context.Background(), IssueGiftCardInput{Amount: 0})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestRedeemPartialThenFull(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := issueCard(t, env, 20_000, true)
	orderID := "order-77"

	res, err := env.giftCards.Redeem(ctx, card.Code, 15_000, &orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), res.Card.Balance)
	assert.Equal(t, models.GiftCardActive, res.Card.Status)
	assert.Equal(t, &orderID, res.Redemption.OrderID)

	_, err = env.giftCards.Redeem(ctx, card.Code, 6_000, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeGiftCardInsufficientBalance))

	res, err = env.giftCards.Redeem(ctx, card.Code, 5_000, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Card.Balance)
	assert.Equal(t, models.GiftCardRedeemed, res.Card.Status)

	_, err = env.giftCards.Redeem(ctx, card.Code, 1, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeGiftCardInsufficientBalance))

	reds, err := env.giftCards.Redemptions(ctx, card.Code)
	require.NoError(t, err)
	require.Len(t, reds, 2)
	var total int64
	for _, r := range reds {
		total += r.Amount
	}
	assert.Equal(t, int64(20_000), total)
}

func TestRedeemRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pending := issueCard(t, env, 5_000, false)
	active := issueCard(t, env, 5_000, true)

	_, err := env.giftCards.Redeem(ctx, "NEXU-0000-0000-0000", 100, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeGiftCardNotFound))
	_, err = env.giftCards.Redeem(ctx, pending.Code, 100, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeGiftCardNotActive))
	_, err = env.giftCards.Redeem(ctx, active.Code, 0, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	reds, err := env.giftCards.Redemptions(ctx, active.Code)
	require.NoError(t, err)
	assert.Empty(t, reds)
}

func TestRedeemExpiredFlipsStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := issueCard(t, env, 5_000, true)
	env.clock.Advance(400 * time24h)

	_, err := env.giftCards.Redeem(ctx, card.Code, 100, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeGiftCardExpired))

	stored, err := env.store.GiftCards().FindByCode(ctx, card.Code)
	require.NoError(t, err)
	assert.Equal(t, models.GiftCardExpired, stored.Status)
	assert.Equal(t, int64(5_000), stored.Balance)

	_, err = env.giftCards.Redeem(ctx, card.Code, 100, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeGiftCardExpired))
}

func TestBalanceExpiresDueCard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := issueCard(t, env, 5_000, true)

	got, err := env.giftCards.Balance(ctx, strings.ToLower(card.Code))
	require.NoError(t, err)
	assert.Equal(t, models.GiftCardActive, got.Status)

	env.clock.Advance(400 * time24h)
	got, err = env.giftCards.Balance(ctx, card.Code)
	require.NoError(t, err)
	assert.Equal(t, models.GiftCardExpired, got.Status)
}

func TestPendingCardExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := issueCard(t, env, 5_000, false)
	env.clock.Advance(400 * time24h)

	got, err := env.giftCards.Balance(ctx, card.Code)
	require.NoError(t, err)
	assert.Equal(t, models.GiftCardExpired, got.Status)

	_, err = env.giftCards.Activate(ctx, card.Code)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeGiftCardExpired))
}

func TestActivatePastExpiryFlipsStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := issueCard(t, env, 5_000, false)
	env.clock.Advance(400 * time24h)

	_, err := env.giftCards.Activate(ctx, card.Code)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeGiftCardExpired))

	stored, err := env.store.GiftCards().FindByCode(ctx, card.Code)
	require.NoError(t, err)
	assert.Equal(t, models.GiftCardExpired, stored.Status)
	assert.Equal(t, int64(5_000), stored.Balance)
}

func TestRedeemedCardDoesNotExpire(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := issueCard(t, env, 1_000, true)
	_, err := env.giftCards.Redeem(ctx, card.Code, 1_000, nil)
	require.NoError(t, err)
	env.clock.Advance(400 * time24h)

	got, err := env.giftCards.Balance(ctx, card.Code)
	require.NoError(t, err)
	assert.Equal(t, models.GiftCardRedeemed, got.Status)
}

func TestActivate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := issueCard(t, env, 5_000, false)

	got, err := env.giftCards.Activate(ctx, card.Code)
	require.NoError(t, err)
	assert.Equal(t, models.GiftCardActive, got.Status)

	_, err = env.giftCards.Activate(ctx, card.Code)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestConcurrentRedemptionsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := issueCard(t, env, 10_000, true)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.giftCards.Redeem(ctx, card.Code, 1_000, nil); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else {
				assert.True(t, apperrors.HasCode(err, apperrors.CodeGiftCardInsufficientBalance))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	stored, err := env.store.GiftCards().FindByCode(ctx, card.Code)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Balance)
	assert.Equal(t, models.GiftCardRedeemed, stored.Status)

	reds, err := env.giftCards.Redemptions(ctx, card.Code)
	require.NoError(t, err)
	assert.Len(t, reds, 10)
}
