package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/repository"
)

type Coupons struct{ s *Store }

func (c *Coupons) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	c.s.rlock(ctx)
	defer c.s.runlock(ctx)
	cp, ok := c.s.st.coupons[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp = cloneCoupon(cp)
	return &cp, nil
}

func (c *Coupons) List(ctx context.Context) ([]models.Coupon, error) {
	c.s.rlock(ctx)
	defer c.s.runlock(ctx)
	out := make([]models.Coupon, 0, len(c.s.st.coupons))
	for _, cp := range c.s.st.coupons {
		out = append(out, cloneCoupon(cp))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (c *Coupons) Create(ctx context.Context, cp *models.Coupon) error {
	c.s.wlock(ctx)
	defer c.s.wunlock(ctx)
	if _, ok := c.s.st.coupons[cp.Code]; ok {
		return fmt.Errorf("%w: coupons_code_key", repository.ErrConflict)
	}
	c.s.st.coupons[cp.Code] = cloneCoupon(*cp)
	return nil
}

func (c *Coupons) Update(ctx context.Context, cp *models.Coupon) error {
	c.s.wlock(ctx)
	defer c.s.wunlock(ctx)
	current, ok := c.s.st.coupons[cp.Code]
	if !ok {
		return repository.ErrNotFound
	}
	updated := cloneCoupon(*cp)
	updated.ID = current.ID
	updated.UsageCount = current.UsageCount
	updated.CreatedAt = current.CreatedAt
	c.s.st.coupons[cp.Code] = updated
	return nil
}

func (c *Coupons) IncrementUsage(ctx context.Context, code string) error {
	c.s.wlock(ctx)
	defer c.s.wunlock(ctx)
	cp, ok := c.s.st.coupons[code]
	if !ok {
		return repository.ErrNotFound
	}
	cp.UsageCount++
	cp.UpdatedAt = time.Now().UTC()
	c.s.st.coupons[code] = cp
	return nil
}

type GiftCards struct{ s *Store }

func (g *GiftCards) Create(ctx context.Context, card *models.GiftCard) error {
	g.s.wlock(ctx)
	defer g.s.wunlock(ctx)
	if _, ok := g.s.st.giftCards[card.Code]; ok {
		return fmt.Errorf("%w: gift_cards_code_key", repository.ErrConflict)
	}
	g.s.st.giftCards[card.Code] = *card
	return nil
}

func (g *GiftCards) FindByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	g.s.rlock(ctx)
	defer g.s.runlock(ctx)
	card, ok := g.s.st.giftCards[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &card, nil
}

func (g *GiftCards) FindByCodeForUpdate(ctx context.Context, code string) (*models.GiftCard, error) {
	return g.FindByCode(ctx, code)
}

func (g *GiftCards) Update(ctx context.Context, card *models.GiftCard) error {
	g.s.wlock(ctx)
	defer g.s.wunlock(ctx)
	current, ok := g.s.st.giftCards[card.Code]
	if !ok || current.ID != card.ID {
		return repository.ErrNotFound
	}
	if card.Balance < 0 || card.Balance > current.Amount {
		return fmt.Errorf("gift card %s: balance %d out of range", card.Code, card.Balance)
	}
	current.Balance = card.Balance
	current.Status = card.Status
	current.UpdatedAt = card.UpdatedAt
	g.s.st.giftCards[card.Code] = current
	return nil
}

func (g *GiftCards) AppendRedemption(ctx context.Context, red *models.GiftCardRedemption) error {
	g.s.wlock(ctx)
	defer g.s.wunlock(ctx)
	g.s.st.redemptions = append(g.s.st.redemptions, *red)
	return nil
}

func (g *GiftCards) ListRedemptions(ctx context.Context, giftCardID string) ([]models.GiftCardRedemption, error) {
	g.s.rlock(ctx)
	defer g.s.runlock(ctx)
	var out []models.GiftCardRedemption
	for _, red := range g.s.st.redemptions {
		if red.GiftCardID == giftCardID {
			out = append(out, red)
		}
	}
	return out, nil
}
