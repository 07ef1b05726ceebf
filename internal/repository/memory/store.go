// Package memory is an in-process implementation of the storage interfaces.
// It backs the test suites and NEXU_STORAGE=memory dev mode.
package memory

import (
	"context"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

type state struct {
	products    map[string]models.Product
	variants    map[string]models.ProductVariant
	logs        []models.InventoryLog
	nextLogID   int64
	coupons     map[string]models.Coupon
	orders      map[string]models.Order
	customers   map[string]models.Customer
	giftCards   map[string]models.GiftCard
	redemptions []models.GiftCardRedemption
	alerts      map[string]models.PriceAlert
	subscribers map[string]models.NewsletterSubscriber
	settings    map[string]string
}

func (s state) clone() state {
	return state{
		products:    maps.Clone(s.products),
		variants:    maps.Clone(s.variants),
		logs:        slices.Clone(s.logs),
		nextLogID:   s.nextLogID,
		coupons:     maps.Clone(s.coupons),
		orders:      maps.Clone(s.orders),
		customers:   maps.Clone(s.customers),
		giftCards:   maps.Clone(s.giftCards),
		redemptions: slices.Clone(s.redemptions),
		alerts:      maps.Clone(s.alerts),
		subscribers: maps.Clone(s.subscribers),
		settings:    maps.Clone(s.settings),
	}
}

// Store holds every table behind one lock. Writers inside WithTransaction
// hold it for the whole unit of work, which serializes them like a row lock.
type Store struct {
	mu sync.RWMutex
	st state
}

func New() *Store {
	return &Store{st: state{
		products:    make(map[string]models.Product),
		variants:    make(map[string]models.ProductVariant),
		nextLogID:   1,
		coupons:     make(map[string]models.Coupon),
		orders:      make(map[string]models.Order),
		customers:   make(map[string]models.Customer),
		giftCards:   make(map[string]models.GiftCard),
		alerts:      make(map[string]models.PriceAlert),
		subscribers: make(map[string]models.NewsletterSubscriber),
		settings: map[string]string{
			models.SettingShippingFee:           strconv.Itoa(1490),
			models.SettingFreeShippingThreshold: strconv.Itoa(20000),
		},
	}}
}

type txKey struct{}

func isTx(ctx context.Context) bool {
	b, ok := ctx.Value(txKey{}).(bool)
	return ok && b
}

func (s *Store) rlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.RLock()
	}
}

func (s *Store) runlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.RUnlock()
	}
}

func (s *Store) wlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.Lock()
	}
}

func (s *Store) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.Unlock()
	}
}

// WithTransaction runs fn under the store lock. If fn fails every change it
// made is rolled back. Nested calls join the outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.st = saved
		return err
	}
	return nil
}

func (s *Store) Catalog() *Catalog         { return &Catalog{s: s} }
func (s *Store) Inventory() *Inventory     { return &Inventory{s: s} }
func (s *Store) Coupons() *Coupons         { return &Coupons{s: s} }
func (s *Store) Orders() *Orders           { return &Orders{s: s} }
func (s *Store) Customers() *Customers     { return &Customers{s: s} }
func (s *Store) GiftCards() *GiftCards     { return &GiftCards{s: s} }
func (s *Store) PriceAlerts() *PriceAlerts { return &PriceAlerts{s: s} }
func (s *Store) Newsletter() *Newsletter   { return &Newsletter{s: s} }
func (s *Store) Settings() *Settings       { return &Settings{s: s} }

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return slices.Clone(in)
}

func cloneOrder(o models.Order) models.Order {
	items := make([]models.OrderItem, len(o.Items))
	for i, it := range o.Items {
		it.SelectedOptions = maps.Clone(it.SelectedOptions)
		items[i] = it
	}
	o.Items = items
	return o
}

func cloneCoupon(c models.Coupon) models.Coupon {
	c.ProductIDs = cloneStrings(c.ProductIDs)
	c.CategoryIDs = cloneStrings(c.CategoryIDs)
	return c
}
