package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

func TestCreateProductPostsInitialStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "kettle", 12_000, 7)

	got, err := env.catalog.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)

	rec, err := env.inventory.Reconcile(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.True(t, rec.InSync)
	assert.Equal(t, 7, rec.LedgerStock)

	_, err = env.catalog.CreateProduct(ctx, ProductInput{Slug: "kettle", Name: "Other", Price: 1})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestProductValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		in   ProductInput
	}{
		{"missing slug", ProductInput{Name: "x", Price: 1}},
		{"zero price", ProductInput{Slug: "x", Name: "x"}},
		{"negative stock", ProductInput{Slug: "x", Name: "x", Price: 1, Stock: -1}},
		{"sale above price", ProductInput{Slug: "x", Name: "x", Price: 100, SalePrice: ptr(int64(200))}},
		{"sale window reversed", ProductInput{Slug: "x", Name: "x", Price: 100,
			SaleStartDate: ptr(testNow), SaleEndDate: ptr(testNow.Add(-time24h))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.catalog.CreateProduct(context.Background(), tt.in)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
		})
	}
}

func TestArchivedProductsAreHidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "retired", 1_000, 1)
	env.product(t, "current", 1_000, 1)
	require.NoError(t, env.catalog.ArchiveProduct(ctx, p.ID))

	_, err := env.catalog.GetProduct(ctx, p.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	visible, err := env.catalog.ListProducts(ctx, false)
	require.NoError(t, err)
	assert.Len(t, visible, 1)
	all, err := env.catalog.ListProducts(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPriceDropTriggersAlerts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "headphones", 30_000, 5)

	_, err := env.alerts.Subscribe(ctx, "Fan@Example.hu", p.ID, 25_000)
	require.NoError(t, err)
	_, err = env.alerts.Subscribe(ctx, "cheap@example.hu", p.ID, 10_000)
	require.NoError(t, err)

	_, err = env.catalog.UpdateProduct(ctx, p.ID, ProductUpdate{SalePrice: ptr(int64(24_000))})
	require.NoError(t, err)

	sent := env.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "fan@example.hu", sent[0].To)

	armed, err := env.store.PriceAlerts().ListUntriggered(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, armed, 1)
	assert.Equal(t, "cheap@example.hu", armed[0].Email)
}

func TestUpdateWithoutPriceChangeSkipsAlerts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "speaker", 20_000, 5)
	_, err := env.alerts.Subscribe(ctx, "fan@example.hu", p.ID, 25_000)
	require.NoError(t, err)

	_, err = env.catalog.UpdateProduct(ctx, p.ID, ProductUpdate{Name: ptr("Speaker v2")})
	require.NoError(t, err)
	assert.Empty(t, env.mailer.Sent())
}

func TestAdjustInventory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "socks", 1_000, 2)
	admin := "admin-1"

	_, err := env.inventory.Adjust(ctx, AdjustInput{ProductID: p.ID, Change: -3, Reason: models.ReasonManualAdjustment, UserID: &admin})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientStock))

	_, err = env.inventory.Adjust(ctx, AdjustInput{ProductID: p.ID, Change: 5, Reason: models.ReasonOrderPlaced})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	entry, err := env.inventory.Adjust(ctx, AdjustInput{ProductID: p.ID, Change: 10, Reason: models.ReasonRestock, UserID: &admin})
	require.NoError(t, err)
	assert.Equal(t, 10, entry.Change)

	rec, err := env.inventory.Reconcile(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StockReconciliation{ProductID: p.ID, LedgerStock: 12, CounterStock: 12, InSync: true}, rec)
}

func TestSettingsCacheInvalidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cur, err := env.settings.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SiteSettings{ShippingFee: 1490, FreeShippingThreshold: 20_000}, cur)

	// A write behind the service is not visible until the cache is dropped.
	require.NoError(t, env.store.Settings().Put(ctx, models.SettingShippingFee, "999"))
	cur, err = env.settings.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1490), cur.ShippingFee)

	cur, err = env.settings.Update(ctx, SettingsUpdate{FreeShippingThreshold: ptr(int64(0))})
	require.NoError(t, err)
	assert.Equal(t, models.SiteSettings{ShippingFee: 999, FreeShippingThreshold: 0}, cur)

	_, err = env.settings.Update(ctx, SettingsUpdate{ShippingFee: ptr(int64(-1))})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}
