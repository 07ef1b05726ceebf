package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"net/mail"
	"strings"
	"sync/atomic"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/concurrency"
	"github.com/Cheertaboi/nexu-webshop/internal/email"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

const alertWorkers = 4

// PriceAlertService stores price watches and mails them when a product drops
// to the target.
type PriceAlertService struct {
	alerts  PriceAlertRepo
	catalog CatalogRepo
	mailer  email.Sender
	clock   Clock
	newID   IDGenerator
}

func NewPriceAlertService(alerts PriceAlertRepo, catalog CatalogRepo, mailer email.Sender, clock Clock, newID IDGenerator) *PriceAlertService {
	return &PriceAlertService{alerts: alerts, catalog: catalog, mailer: mailer, clock: clock, newID: newID}
}

// Subscribe upserts the alert for (email, product) and re-arms it.
func (s *PriceAlertService) Subscribe(ctx context.Context, addr, productID string, targetPrice int64) (*models.PriceAlert, error) {
	addr, err := normalizeEmail(addr)
	if err != nil {
		return nil, err
	}
	if targetPrice <= 0 {
		return nil, apperrors.WithMetadata(apperrors.CodeValidation, "target price must be positive", map[string]string{"field": "targetPrice"})
	}
	p, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		return nil, notFound(err, apperrors.CodeNotFound, "product not found")
	}
	if p.IsArchived {
		return nil, apperrors.New(apperrors.CodeNotFound, "product not found")
	}

	now := s.clock.now()
	a := &models.PriceAlert{
		ID:           s.newID.next(),
		Email:        addr,
		ProductID:    p.ID,
		TargetPrice:  targetPrice,
		CurrentPrice: p.EffectivePrice(now),
		CreatedAt:    now,
	}
	if err := s.alerts.Upsert(ctx, a); err != nil {
		return nil, fmt.Errorf("upsert price alert: %w", err)
	}
	return a, nil
}

// Evaluate mails every untriggered alert whose target the current price has
// reached and marks it triggered. A failed mail leaves the alert armed.
// It returns the number of alerts triggered.
func (s *PriceAlertService) Evaluate(ctx context.Context, productID string) (int, error) {
	p, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		return 0, notFound(err, apperrors.CodeNotFound, "product not found")
	}
	alerts, err := s.alerts.ListUntriggered(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("list price alerts: %w", err)
	}

	now := s.clock.now()
	price := p.EffectivePrice(now)
	var due []models.PriceAlert
	for _, a := range alerts {
		if price <= a.TargetPrice {
			due = append(due, a)
		}
	}

	var triggered atomic.Int32
	errs := concurrency.Run(ctx, alertWorkers, due, func(ctx context.Context, a models.PriceAlert) error {
		msg := email.Message{
			To:      a.Email,
			Subject: fmt.Sprintf("Price drop: %s", p.Name),
			HTML: fmt.Sprintf("<p>%s is now %d Ft, at or below your target of %d Ft.</p>",
				html.EscapeString(p.Name), price, a.TargetPrice),
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			return apperrors.Wrap(apperrors.CodeEmailFailed, "price alert mail failed", err)
		}
		if err := s.alerts.MarkTriggered(ctx, a.ID, price, now); err != nil {
			return fmt.Errorf("mark alert triggered: %w", err)
		}
		triggered.Add(1)
		return nil
	})
	for i, err := range errs {
		if err != nil {
			log.Printf("price-alerts: alert=%s email=%s err=%v", due[i].ID, due[i].Email, err)
		}
	}
	return int(triggered.Load()), nil
}

// EvaluateSales re-checks alerts on every listed product whose sale window
// is open, so a scheduled sale fires alerts without an admin edit.
func (s *PriceAlertService) EvaluateSales(ctx context.Context) (int, error) {
	products, err := s.catalog.ListProducts(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("list products: %w", err)
	}
	now := s.clock.now()
	var total int
	for _, p := range products {
		if !p.SaleActive(now) {
			continue
		}
		n, err := s.Evaluate(ctx, p.ID)
		if err != nil {
			log.Printf("price-alerts: sale evaluation failed product=%s err=%v", p.ID, err)
			continue
		}
		total += n
	}
	return total, nil
}

// NewsletterService manages subscriptions. Mail failures never fail the call.
type NewsletterService struct {
	repo   NewsletterRepo
	mailer email.Sender
	clock  Clock
}

func NewNewsletterService(repo NewsletterRepo, mailer email.Sender, clock Clock) *NewsletterService {
	return &NewsletterService{repo: repo, mailer: mailer, clock: clock}
}

func (s *NewsletterService) Subscribe(ctx context.Context, addr string) error {
	addr, err := normalizeEmail(addr)
	if err != nil {
		return err
	}
	changed, err := s.repo.SetSubscribed(ctx, addr, true, s.clock.now())
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if !changed {
		return nil
	}
	if err := s.mailer.Send(ctx, email.Message{
		To:      addr,
		Subject: "Welcome to the NEXU newsletter",
		HTML:    "<p>Thanks for subscribing. We will keep you posted on new arrivals and offers.</p>",
	}); err != nil {
		log.Printf("newsletter: welcome mail failed email=%s err=%v", addr, err)
	}
	return nil
}

func (s *NewsletterService) Unsubscribe(ctx context.Context, addr string) error {
	addr, err := normalizeEmail(addr)
	if err != nil {
		return err
	}
	if _, err := s.repo.SetSubscribed(ctx, addr, false, s.clock.now()); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

func normalizeEmail(addr string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(addr))
	if err != nil {
		return "", apperrors.WithMetadata(apperrors.CodeValidation, "email is invalid", map[string]string{"field": "email"})
	}
	return strings.ToLower(parsed.Address), nil
}
