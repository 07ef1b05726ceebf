package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Cheertaboi/nexu-webshop/internal/api/handlers"
	"github.com/Cheertaboi/nexu-webshop/internal/api/middleware"
	"github.com/Cheertaboi/nexu-webshop/internal/service"
)

// Limit is a per-route request budget.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Deps carries everything the router wires into handlers.
type Deps struct {
	Catalog    *service.CatalogService
	Inventory  *service.InventoryService
	Coupons    *service.CouponService
	Pricing    *service.PricingService
	Loyalty    *service.LoyaltyService
	Orders     *service.OrderService
	Payments   *service.PaymentService
	GiftCards  *service.GiftCardService
	Alerts     *service.PriceAlertService
	Newsletter *service.NewsletterService
	Settings   *service.SettingsService

	// Verifier may be nil, in which case every bearer token is rejected.
	Verifier middleware.TokenVerifier
	Limiter  middleware.Enforcer

	CouponLimit   Limit
	CheckoutLimit Limit
}

// NewRouter builds the HTTP router for the webshop API
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Authenticate(d.Verifier))

	catalogHandler := handlers.NewCatalogHandler(d.Catalog, d.Inventory)
	couponHandler := handlers.NewCouponHandler(d.Coupons, d.Pricing)
	orderHandler := handlers.NewOrderHandler(d.Orders, d.Payments, d.Pricing, d.Loyalty)
	paymentHandler := handlers.NewPaymentHandler(d.Payments)
	giftCardHandler := handlers.NewGiftCardHandler(d.GiftCards)
	engagementHandler := handlers.NewEngagementHandler(d.Alerts, d.Newsletter, d.Settings)

	// Public storefront endpoints
	r.Get("/products", catalogHandler.ListProducts)
	r.Get("/products/{id}", catalogHandler.GetProduct)
	r.Post("/cart/quote", orderHandler.Quote)
	r.With(middleware.RateLimit(d.Limiter, "coupon-validate", d.CouponLimit.Requests, d.CouponLimit.Window)).
		Post("/coupons/validate", couponHandler.ValidateCoupon)
	r.With(middleware.RateLimit(d.Limiter, "checkout", d.CheckoutLimit.Requests, d.CheckoutLimit.Window)).
		Post("/checkout", orderHandler.Checkout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/orders/{id}", orderHandler.GetOrder)
		r.Post("/orders/{id}/cancel", orderHandler.CancelOrder)
		r.Get("/account/loyalty", orderHandler.Loyalty)
	})

	r.Post("/webhooks/stripe", paymentHandler.Webhook)

	r.Route("/giftcards", func(r chi.Router) {
		r.Post("/balance", giftCardHandler.Balance)
		r.Post("/redeem", giftCardHandler.Redeem)
	})

	r.Post("/price-alerts", engagementHandler.SubscribePriceAlert)
	r.Post("/newsletter/subscribe", engagementHandler.Subscribe)
	r.Post("/newsletter/unsubscribe", engagementHandler.Unsubscribe)

	// Admin endpoints
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)

		r.Post("/products", catalogHandler.CreateProduct)
		r.Patch("/products/{id}", catalogHandler.UpdateProduct)
		r.Post("/products/{id}/archive", catalogHandler.ArchiveProduct)
		r.Post("/products/{id}/variants", catalogHandler.CreateVariant)
		r.Post("/inventory/adjust", catalogHandler.AdjustInventory)
		r.Get("/inventory/{productId}/reconcile", catalogHandler.Reconcile)

		r.Get("/coupons", couponHandler.ListCoupons)
		r.Post("/coupons", couponHandler.CreateCoupon)
		r.Get("/coupons/{code}", couponHandler.GetCoupon)
		r.Put("/coupons/{code}", couponHandler.UpdateCoupon)
		r.Delete("/coupons/{code}", couponHandler.DeactivateCoupon)

		r.Post("/giftcards", giftCardHandler.Issue)
		r.Post("/giftcards/{code}/activate", giftCardHandler.Activate)
		r.Get("/giftcards/{code}/redemptions", giftCardHandler.Redemptions)

		r.Get("/orders", orderHandler.ListOrders)
		r.Get("/orders/export.csv", orderHandler.ExportCSV)
		r.Post("/orders/cleanup", orderHandler.Cleanup)
		r.Patch("/orders/{id}/status", orderHandler.UpdateStatus)
		r.Post("/orders/{id}/mark-paid", orderHandler.MarkPaid)

		r.Get("/settings", engagementHandler.GetSettings)
		r.Put("/settings", engagementHandler.PutSettings)
	})

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
