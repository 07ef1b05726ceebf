package service

import (
	"context"
	"errors"
	"sort"

	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/repository"
)

func DefaultLoyaltyTiers() []models.LoyaltyTier {
	return []models.LoyaltyTier{
		{Name: "Bronze", MinSpent: 0, DiscountPercent: 0},
		{Name: "Silver", MinSpent: 100_000, DiscountPercent: 3},
		{Name: "Gold", MinSpent: 300_000, DiscountPercent: 5},
		{Name: "Platinum", MinSpent: 1_000_000, DiscountPercent: 10},
	}
}

// LoyaltyEngine maps cumulative spend to a tier. It is pure.
type LoyaltyEngine struct {
	tiers []models.LoyaltyTier
}

// NewLoyaltyEngine sorts a copy of tiers by MinSpent. Empty input falls back
// to DefaultLoyaltyTiers.
func NewLoyaltyEngine(tiers []models.LoyaltyTier) *LoyaltyEngine {
	if len(tiers) == 0 {
		tiers = DefaultLoyaltyTiers()
	}
	sorted := append([]models.LoyaltyTier(nil), tiers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinSpent < sorted[j].MinSpent })
	return &LoyaltyEngine{tiers: sorted}
}

// TierFor returns the highest tier with MinSpent <= totalSpent, or the lowest tier.
func (e *LoyaltyEngine) TierFor(totalSpent int64) models.LoyaltyTier {
	tier := e.tiers[0]
	for _, t := range e.tiers {
		if t.MinSpent > totalSpent {
			break
		}
		tier = t
	}
	return tier
}

// NextTier returns the first tier above totalSpent and the spend still
// needed to reach it. ok is false at the top tier.
func (e *LoyaltyEngine) NextTier(totalSpent int64) (tier models.LoyaltyTier, remaining int64, ok bool) {
	for _, t := range e.tiers {
		if t.MinSpent > totalSpent {
			return t, t.MinSpent - totalSpent, true
		}
	}
	return models.LoyaltyTier{}, 0, false
}

func (e *LoyaltyEngine) Tiers() []models.LoyaltyTier {
	return append([]models.LoyaltyTier(nil), e.tiers...)
}

type LoyaltyStatus struct {
	TotalSpent      int64               `json:"totalSpent"`
	Tier            models.LoyaltyTier  `json:"tier"`
	NextTier        *models.LoyaltyTier `json:"nextTier,omitempty"`
	RemainingToNext int64               `json:"remainingToNext"`
}

// LoyaltyService reads customer spend for the engine.
type LoyaltyService struct {
	engine    *LoyaltyEngine
	customers CustomerRepo
}

func NewLoyaltyService(engine *LoyaltyEngine, customers CustomerRepo) *LoyaltyService {
	return &LoyaltyService{engine: engine, customers: customers}
}

func (s *LoyaltyService) Status(ctx context.Context, userID string) (LoyaltyStatus, error) {
	spent, err := s.totalSpent(ctx, userID)
	if err != nil {
		return LoyaltyStatus{}, err
	}
	status := LoyaltyStatus{TotalSpent: spent, Tier: s.engine.TierFor(spent)}
	if next, remaining, ok := s.engine.NextTier(spent); ok {
		status.NextTier = &next
		status.RemainingToNext = remaining
	}
	return status, nil
}

// DiscountPercent is the loyalty discount for userID. Anonymous callers and
// customers without purchases get the lowest tier.
func (s *LoyaltyService) DiscountPercent(ctx context.Context, userID string) (int, error) {
	spent, err := s.totalSpent(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.engine.TierFor(spent).DiscountPercent, nil
}

func (s *LoyaltyService) totalSpent(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, nil
	}
	c, err := s.customers.FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.TotalSpent, nil
}
