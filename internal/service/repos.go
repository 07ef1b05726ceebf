package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/repository"
)

// TxManager runs fn as one unit of work. Repositories called with the ctx
// passed to fn join it.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type CatalogRepo interface {
	FindProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, includeArchived bool) ([]models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	FindVariant(ctx context.Context, id string) (*models.ProductVariant, error)
	ListVariants(ctx context.Context, productID string) ([]models.ProductVariant, error)
	CreateVariant(ctx context.Context, v *models.ProductVariant) error
	AddStock(ctx context.Context, productID string, variantID *string, delta int) error
}

type InventoryRepo interface {
	Append(ctx context.Context, entry *models.InventoryLog) error
	ListByReference(ctx context.Context, referenceID string) ([]models.InventoryLog, error)
	SumChanges(ctx context.Context, productID string, variantID *string) (int, error)
}

type CouponRepo interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Create(ctx context.Context, c *models.Coupon) error
	Update(ctx context.Context, c *models.Coupon) error
	IncrementUsage(ctx context.Context, code string) error
}

type OrderRepo interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id string) (*models.Order, error)
	Update(ctx context.Context, o *models.Order) error
	List(ctx context.Context, f models.OrderFilter) ([]models.Order, error)
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Order, error)
}

type CustomerRepo interface {
	FindByUserID(ctx context.Context, userID string) (*models.Customer, error)
	AddSpent(ctx context.Context, userID, email string, amount int64) error
}

type GiftCardRepo interface {
	Create(ctx context.Context, g *models.GiftCard) error
	FindByCode(ctx context.Context, code string) (*models.GiftCard, error)
	FindByCodeForUpdate(ctx context.Context, code string) (*models.GiftCard, error)
	Update(ctx context.Context, g *models.GiftCard) error
	AppendRedemption(ctx context.Context, r *models.GiftCardRedemption) error
	ListRedemptions(ctx context.Context, giftCardID string) ([]models.GiftCardRedemption, error)
}

type PriceAlertRepo interface {
	Upsert(ctx context.Context, a *models.PriceAlert) error
	ListUntriggered(ctx context.Context, productID string) ([]models.PriceAlert, error)
	MarkTriggered(ctx context.Context, id string, currentPrice int64, at time.Time) error
}

type NewsletterRepo interface {
	SetSubscribed(ctx context.Context, email string, subscribed bool, at time.Time) (bool, error)
}

type SettingsRepo interface {
	All(ctx context.Context) (map[string]string, error)
	Put(ctx context.Context, key, value string) error
}

// Clock returns the current time. A nil Clock reads the wall clock in UTC.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// IDGenerator returns a new unique id. A nil IDGenerator uses random UUIDs.
type IDGenerator func() string

func (g IDGenerator) next() string {
	if g == nil {
		return uuid.NewString()
	}
	return g()
}

// notFound turns repository.ErrNotFound into an app error with code; other
// errors pass through.
func notFound(err error, code apperrors.Code, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.New(code, msg)
	}
	return err
}
