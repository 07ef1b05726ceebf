package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/repository"
)

type PriceAlerts struct{ s *Store }

func (p *PriceAlerts) Upsert(ctx context.Context, a *models.PriceAlert) error {
	p.s.wlock(ctx)
	defer p.s.wunlock(ctx)
	for id, existing := range p.s.st.alerts {
		if existing.Email == a.Email && existing.ProductID == a.ProductID {
			existing.TargetPrice = a.TargetPrice
			existing.CurrentPrice = a.CurrentPrice
			existing.Triggered = false
			existing.NotifiedAt = nil
			p.s.st.alerts[id] = existing
			*a = existing
			return nil
		}
	}
	a.Triggered = false
	a.NotifiedAt = nil
	p.s.st.alerts[a.ID] = *a
	return nil
}

func (p *PriceAlerts) ListUntriggered(ctx context.Context, productID string) ([]models.PriceAlert, error) {
	p.s.rlock(ctx)
	defer p.s.runlock(ctx)
	var out []models.PriceAlert
	for _, a := range p.s.st.alerts {
		if a.ProductID == productID && !a.Triggered {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (p *PriceAlerts) MarkTriggered(ctx context.Context, id string, currentPrice int64, at time.Time) error {
	p.s.wlock(ctx)
	defer p.s.wunlock(ctx)
	a, ok := p.s.st.alerts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Triggered = true
	a.CurrentPrice = currentPrice
	a.NotifiedAt = &at
	p.s.st.alerts[id] = a
	return nil
}

type Newsletter struct{ s *Store }

func (n *Newsletter) SetSubscribed(ctx context.Context, email string, subscribed bool, at time.Time) (bool, error) {
	n.s.wlock(ctx)
	defer n.s.wunlock(ctx)
	sub, ok := n.s.st.subscribers[email]
	changed := !ok || sub.Subscribed != subscribed
	if !ok {
		sub = models.NewsletterSubscriber{Email: email, CreatedAt: at}
	}
	sub.Subscribed = subscribed
	sub.UpdatedAt = at
	n.s.st.subscribers[email] = sub
	return changed, nil
}

type Settings struct{ s *Store }

func (st *Settings) All(ctx context.Context) (map[string]string, error) {
	st.s.rlock(ctx)
	defer st.s.runlock(ctx)
	out := make(map[string]string, len(st.s.st.settings))
	for k, v := range st.s.st.settings {
		out[k] = v
	}
	return out, nil
}

func (st *Settings) Put(ctx context.Context, key, value string) error {
	st.s.wlock(ctx)
	defer st.s.wunlock(ctx)
	st.s.st.settings[key] = value
	return nil
}
