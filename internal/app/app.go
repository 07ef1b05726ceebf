// Package app assembles the services over a storage backend.
package app

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Cheertaboi/nexu-webshop/internal/api"
	"github.com/Cheertaboi/nexu-webshop/internal/cache"
	"github.com/Cheertaboi/nexu-webshop/internal/email"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/payment"
	"github.com/Cheertaboi/nexu-webshop/internal/ratelimit"
	"github.com/Cheertaboi/nexu-webshop/internal/repository"
	"github.com/Cheertaboi/nexu-webshop/internal/repository/memory"
	"github.com/Cheertaboi/nexu-webshop/internal/service"
)

// Storage is one backend's set of repositories plus its transaction manager.
type Storage struct {
	Tx          service.TxManager
	Catalog     service.CatalogRepo
	Inventory   service.InventoryRepo
	Coupons     service.CouponRepo
	Orders      service.OrderRepo
	Customers   service.CustomerRepo
	GiftCards   service.GiftCardRepo
	PriceAlerts service.PriceAlertRepo
	Newsletter  service.NewsletterRepo
	Settings    service.SettingsRepo
}

func PostgresStorage(db *sql.DB) Storage {
	return Storage{
		Tx:          repository.NewTxManager(db),
		Catalog:     repository.NewCatalogRepo(db),
		Inventory:   repository.NewInventoryRepo(db),
		Coupons:     repository.NewCouponRepo(db),
		Orders:      repository.NewOrderRepo(db),
		Customers:   repository.NewCustomerRepo(db),
		GiftCards:   repository.NewGiftCardRepo(db),
		PriceAlerts: repository.NewPriceAlertRepo(db),
		Newsletter:  repository.NewNewsletterRepo(db),
		Settings:    repository.NewSettingsRepo(db),
	}
}

func MemoryStorage(s *memory.Store) Storage {
	return Storage{
		Tx:          s,
		Catalog:     s.Catalog(),
		Inventory:   s.Inventory(),
		Coupons:     s.Coupons(),
		Orders:      s.Orders(),
		Customers:   s.Customers(),
		GiftCards:   s.GiftCards(),
		PriceAlerts: s.PriceAlerts(),
		Newsletter:  s.Newsletter(),
		Settings:    s.Settings(),
	}
}

type Options struct {
	Gateway     payment.Gateway
	Mailer      email.Sender
	Currency    string
	MinorFactor int64

	StaleOrderAfter  time.Duration
	CleanupWorkers   int
	SettingsCacheTTL time.Duration

	CouponLimit   api.Limit
	CheckoutLimit api.Limit

	// Clock and NewID default to the wall clock and random UUIDs.
	Clock service.Clock
	NewID service.IDGenerator
}

// Build wires every service over st and returns the router dependencies.
// The caller fills in Deps.Verifier.
func Build(st Storage, opts Options) (api.Deps, error) {
	if opts.Gateway == nil {
		opts.Gateway = payment.Unconfigured{}
	}
	if opts.Mailer == nil {
		opts.Mailer = email.LogSender{}
	}

	inventory := service.NewInventoryService(st.Tx, st.Catalog, st.Inventory, opts.Clock)
	alerts := service.NewPriceAlertService(st.PriceAlerts, st.Catalog, opts.Mailer, opts.Clock, opts.NewID)
	catalog := service.NewCatalogService(st.Tx, st.Catalog, inventory, alerts, opts.Clock, opts.NewID)
	coupons := service.NewCouponService(st.Coupons, opts.Clock, opts.NewID)
	loyalty := service.NewLoyaltyService(service.NewLoyaltyEngine(nil), st.Customers)
	settings := service.NewSettingsService(st.Tx, st.Settings, cache.New[models.SiteSettings](opts.SettingsCacheTTL))
	pricing := service.NewPricingService(st.Catalog, coupons, loyalty, settings, opts.Clock)

	orders, err := service.NewOrderService(service.OrderServiceDeps{
		Tx:         st.Tx,
		Orders:     st.Orders,
		Customers:  st.Customers,
		Pricing:    pricing,
		Inventory:  inventory,
		Coupons:    coupons,
		Clock:      opts.Clock,
		NewID:      opts.NewID,
		StaleAfter: opts.StaleOrderAfter,
		Workers:    opts.CleanupWorkers,
	})
	if err != nil {
		return api.Deps{}, fmt.Errorf("order service: %w", err)
	}
	payments, err := service.NewPaymentService(service.PaymentServiceDeps{
		Orders:      orders,
		Gateway:     opts.Gateway,
		Currency:    opts.Currency,
		MinorFactor: opts.MinorFactor,
	})
	if err != nil {
		return api.Deps{}, err
	}

	return api.Deps{
		Catalog:       catalog,
		Inventory:     inventory,
		Coupons:       coupons,
		Pricing:       pricing,
		Loyalty:       loyalty,
		Orders:        orders,
		Payments:      payments,
		GiftCards:     service.NewGiftCardService(st.Tx, st.GiftCards, opts.Clock, opts.NewID),
		Alerts:        alerts,
		Newsletter:    service.NewNewsletterService(st.Newsletter, opts.Mailer, opts.Clock),
		Settings:      settings,
		Limiter:       ratelimit.New(opts.Clock),
		CouponLimit:   opts.CouponLimit,
		CheckoutLimit: opts.CheckoutLimit,
	}, nil
}
