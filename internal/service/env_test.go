package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/nexu-webshop/internal/cache"
	"github.com/Cheertaboi/nexu-webshop/internal/email"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/payment"
	"github.com/Cheertaboi/nexu-webshop/internal/repository/memory"
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

const time24h = 24 * time.Hour

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sequentialIDs(prefix string) IDGenerator {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("%s-%d", prefix, n.Add(1)) }
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []email.Message
	fail map[string]bool
}

func (m *recordingMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[msg.To] {
		return fmt.Errorf("smtp refused %s", msg.To)
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) Sent() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message(nil), m.sent...)
}

type fakeGateway struct {
	mu       sync.Mutex
	intents  []int64
	failWith error
	event    payment.Event
	parseErr error
	// afterIntent runs once the intent exists, outside the gateway lock.
	afterIntent func(orderID string)
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, amountMinor int64, _ string, metadata map[string]string) (payment.Intent, error) {
	g.mu.Lock()
	if g.failWith != nil {
		g.mu.Unlock()
		return payment.Intent{}, g.failWith
	}
	g.intents = append(g.intents, amountMinor)
	hook := g.afterIntent
	g.mu.Unlock()

	if hook != nil {
		hook(metadata["orderId"])
	}
	return payment.Intent{ClientSecret: "secret_" + metadata["orderId"], Reference: "pi_" + metadata["orderId"]}, nil
}

func (g *fakeGateway) ParseWebhook([]byte, string) (payment.Event, error) {
	if g.parseErr != nil {
		return payment.Event{}, g.parseErr
	}
	return g.event, nil
}

// testEnv wires every service against one memory store.
type testEnv struct {
	store     *memory.Store
	clock     *testClock
	mailer    *recordingMailer
	gateway   *fakeGateway
	catalog   *CatalogService
	inventory *InventoryService
	coupons   *CouponService
	loyalty   *LoyaltyService
	settings  *SettingsService
	pricing   *PricingService
	orders    *OrderService
	payments  *PaymentService
	giftCards *GiftCardService
	alerts    *PriceAlertService
	news      *NewsletterService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	clock := &testClock{now: testNow}
	mailer := &recordingMailer{fail: map[string]bool{}}
	gw := &fakeGateway{}
	now := Clock(clock.Now)

	inventory := NewInventoryService(store, store.Catalog(), store.Inventory(), now)
	alerts := NewPriceAlertService(store.PriceAlerts(), store.Catalog(), mailer, now, sequentialIDs("alert"))
	catalog := NewCatalogService(store, store.Catalog(), inventory, alerts, now, sequentialIDs("prod"))
	coupons := NewCouponService(store.Coupons(), now, sequentialIDs("coupon"))
	loyalty := NewLoyaltyService(NewLoyaltyEngine(nil), store.Customers())
	settings := NewSettingsService(store, store.Settings(), cache.New[models.SiteSettings](time.Minute))
	pricing := NewPricingService(store.Catalog(), coupons, loyalty, settings, now)

	orders, err := NewOrderService(OrderServiceDeps{
		Tx:        store,
		Orders:    store.Orders(),
		Customers: store.Customers(),
		Pricing:   pricing,
		Inventory: inventory,
		Coupons:   coupons,
		Clock:     now,
		NewID:     sequentialIDs("order"),
	})
	require.NoError(t, err)
	payments, err := NewPaymentService(PaymentServiceDeps{Orders: orders, Gateway: gw})
	require.NoError(t, err)

	return &testEnv{
		store:     store,
		clock:     clock,
		mailer:    mailer,
		gateway:   gw,
		catalog:   catalog,
		inventory: inventory,
		coupons:   coupons,
		loyalty:   loyalty,
		settings:  settings,
		pricing:   pricing,
		orders:    orders,
		payments:  payments,
		giftCards: NewGiftCardService(store, store.GiftCards(), now, sequentialIDs("gc")),
		alerts:    alerts,
		news:      NewNewsletterService(store.Newsletter(), mailer, now),
	}
}

func (e *testEnv) product(t *testing.T, slug string, price int64, stock int) *models.Product {
	t.Helper()
	p, err := e.catalog.CreateProduct(context.Background(), ProductInput{
		Slug: slug, Name: slug, CategoryID: "cat-default", Price: price, Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) percentCoupon(t *testing.T, code string, percent int64) *models.Coupon {
	t.Helper()
	c, err := e.coupons.Create(context.Background(), CouponInput{
		Code: code, DiscountType: models.DiscountPercentage, Value: decimal.NewFromInt(percent),
	})
	require.NoError(t, err)
	return c
}

func (e *testEnv) customerWithSpend(t *testing.T, userID string, spent int64) {
	t.Helper()
	require.NoError(t, e.store.Customers().AddSpent(context.Background(), userID, userID+"@nexu.hu", spent))
}

func orderInput(actor models.Identity, items ...models.CartLineItem) CreateOrderInput {
	return CreateOrderInput{
		Actor:           actor,
		Items:           items,
		CustomerName:    "Kiss Anna",
		CustomerEmail:   "anna@example.hu",
		ShippingAddress: "1051 Budapest, Fo utca 1.",
		PaymentMethod:   models.PaymentCard,
	}
}

func line(productID string, qty int) models.CartLineItem {
	return models.CartLineItem{ProductID: productID, Quantity: qty}
}

func ptr[T any](v T) *T { return &v }
