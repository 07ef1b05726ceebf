package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/telemetry"
)

const defaultGiftCardValidity = 365 * 24 * time.Hour

// GiftCardService debits gift card balances. Balance and redemption history
// are always written in the same transaction.
type GiftCardService struct {
	tx    TxManager
	cards GiftCardRepo
	clock Clock
	newID IDGenerator
}

func NewGiftCardService(tx TxManager, cards GiftCardRepo, clock Clock, newID IDGenerator) *GiftCardService {
	return &GiftCardService{tx: tx, cards: cards, clock: clock, newID: newID}
}

type RedeemResult struct {
	Card       *models.GiftCard          `json:"giftCard"`
	Redemption *models.GiftCardRedemption `json:"redemption"`
}

// Redeem debits amount from the card. A card found past its expiry is
// flipped to expired and that change is kept even though the call fails.
func (s *GiftCardService) Redeem(ctx context.Context, code string, amount int64, orderID *string) (res *RedeemResult, err error) {
	ctx, span := telemetry.Start(ctx, "giftcards.Redeem")
	defer telemetry.End(span, &err)
	span.SetAttributes(attribute.Int64("giftcard.amount", amount))

	if amount <= 0 {
		return nil, apperrors.WithMetadata(apperrors.CodeValidation, "amount must be positive", map[string]string{"field": "amount"})
	}
	code = models.NormalizeCode(code)

	var flippedExpired bool
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		card, err := s.cards.FindByCodeForUpdate(ctx, code)
		if err != nil {
			return notFound(err, apperrors.CodeGiftCardNotFound, "gift card not found")
		}
		now := s.clock.now()

		expired, err := s.expireIfDue(ctx, card, now)
		if err != nil {
			return err
		}
		if expired {
			flippedExpired = true
			return nil
		}
		if err := checkRedeemable(card, amount); err != nil {
			return err
		}

		red := &models.GiftCardRedemption{
			ID:         s.newID.next(),
			GiftCardID: card.ID,
			OrderID:    orderID,
			Amount:     amount,
			CreatedAt:  now,
		}
		if err := s.cards.AppendRedemption(ctx, red); err != nil {
			return fmt.Errorf("append redemption: %w", err)
		}
		card.Balance -= amount
		if card.Balance == 0 {
			card.Status = models.GiftCardRedeemed
		}
		card.UpdatedAt = now
		if err := s.cards.Update(ctx, card); err != nil {
			return fmt.Errorf("update gift card: %w", err)
		}
		res = &RedeemResult{Card: card, Redemption: red}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if flippedExpired {
		return nil, apperrors.New(apperrors.CodeGiftCardExpired, "gift card has expired")
	}
	return res, nil
}

func checkRedeemable(card *models.GiftCard, amount int64) error {
	switch card.Status {
	case models.GiftCardPending:
		return apperrors.New(apperrors.CodeGiftCardNotActive, "gift card is not active")
	case models.GiftCardExpired:
		return apperrors.New(apperrors.CodeGiftCardExpired, "gift card has expired")
	case models.GiftCardRedeemed:
		return apperrors.WithMetadata(apperrors.CodeGiftCardInsufficientBalance, "gift card balance is too low",
			map[string]string{"balance": "0"})
	}
	if amount > card.Balance {
		return apperrors.WithMetadata(apperrors.CodeGiftCardInsufficientBalance, "gift card balance is too low",
			map[string]string{"balance": fmt.Sprint(card.Balance)})
	}
	return nil
}

// expireIfDue flips a pending or active card past its expiry to expired.
// Redeemed and already expired cards are left alone.
func (s *GiftCardService) expireIfDue(ctx context.Context, card *models.GiftCard, now time.Time) (bool, error) {
	switch card.Status {
	case models.GiftCardPending, models.GiftCardActive:
	default:
		return false, nil
	}
	if !now.After(card.ExpiresAt) {
		return false, nil
	}
	card.Status = models.GiftCardExpired
	card.UpdatedAt = now
	if err := s.cards.Update(ctx, card); err != nil {
		return false, fmt.Errorf("expire gift card: %w", err)
	}
	return true, nil
}

type IssueGiftCardInput struct {
	Amount    int64
	ExpiresAt *time.Time
	Activate  bool
}

func (s *GiftCardService) Issue(ctx context.Context, in IssueGiftCardInput) (*models.GiftCard, error) {
	if in.Amount <= 0 {
		return nil, apperrors.WithMetadata(apperrors.CodeValidation, "amount must be positive", map[string]string{"field": "amount"})
	}
	now := s.clock.now()
	expires := now.Add(defaultGiftCardValidity)
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return nil, apperrors.WithMetadata(apperrors.CodeValidation, "expiry must be in the future", map[string]string{"field": "expiresAt"})
		}
		expires = in.ExpiresAt.UTC()
	}
	status := models.GiftCardPending
	if in.Activate {
		status = models.GiftCardActive
	}
	card := &models.GiftCard{
		ID:        s.newID.next(),
		Code:      newGiftCardCode(),
		Amount:    in.Amount,
		Balance:   in.Amount,
		Status:    status,
		ExpiresAt: expires,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("create gift card: %w", err)
	}
	return card, nil
}

// Activate moves a pending card to active. A pending card already past its
// expiry is flipped to expired instead and the call fails.
func (s *GiftCardService) Activate(ctx context.Context, code string) (*models.GiftCard, error) {
	var (
		card           *models.GiftCard
		flippedExpired bool
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		card, err = s.cards.FindByCodeForUpdate(ctx, models.NormalizeCode(code))
		if err != nil {
			return notFound(err, apperrors.CodeGiftCardNotFound, "gift card not found")
		}
		flippedExpired, err = s.expireIfDue(ctx, card, s.clock.now())
		if err != nil || flippedExpired {
			return err
		}
		if card.Status == models.GiftCardExpired {
			return apperrors.New(apperrors.CodeGiftCardExpired, "gift card has expired")
		}
		if card.Status != models.GiftCardPending {
			return apperrors.WithMetadata(apperrors.CodeInvalidTransition, "only pending gift cards can be activated",
				map[string]string{"status": string(card.Status)})
		}
		card.Status = models.GiftCardActive
		card.UpdatedAt = s.clock.now()
		return s.cards.Update(ctx, card)
	})
	if err != nil {
		return nil, err
	}
	if flippedExpired {
		return nil, apperrors.New(apperrors.CodeGiftCardExpired, "gift card has expired")
	}
	return card, nil
}

// Balance looks a card up by code, expiring it first if it is due.
func (s *GiftCardService) Balance(ctx context.Context, code string) (*models.GiftCard, error) {
	var card *models.GiftCard
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		card, err = s.cards.FindByCodeForUpdate(ctx, models.NormalizeCode(code))
		if err != nil {
			return notFound(err, apperrors.CodeGiftCardNotFound, "gift card not found")
		}
		_, err = s.expireIfDue(ctx, card, s.clock.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

func (s *GiftCardService) Redemptions(ctx context.Context, code string) ([]models.GiftCardRedemption, error) {
	card, err := s.cards.FindByCode(ctx, models.NormalizeCode(code))
	if err != nil {
		return nil, notFound(err, apperrors.CodeGiftCardNotFound, "gift card not found")
	}
	return s.cards.ListRedemptions(ctx, card.ID)
}

// newGiftCardCode returns NEXU-XXXX-XXXX-XXXX built from a random uuid.
func newGiftCardCode() string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("NEXU-%s-%s-%s", hex[0:4], hex[4:8], hex[8:12])
}
