package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
	"github.com/Cheertaboi/nexu-webshop/internal/repository"
)

// AlertEvaluator is notified after a product price changes.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, productID string) (int, error)
}

type CatalogService struct {
	tx        TxManager
	catalog   CatalogRepo
	inventory *InventoryService
	alerts    AlertEvaluator
	clock     Clock
	newID     IDGenerator
}

func NewCatalogService(tx TxManager, catalog CatalogRepo, inventory *InventoryService, alerts AlertEvaluator, clock Clock, newID IDGenerator) *CatalogService {
	return &CatalogService{
		tx:        tx,
		catalog:   catalog,
		inventory: inventory,
		alerts:    alerts,
		clock:     clock,
		newID:     newID,
	}
}

type ProductInput struct {
	Slug          string
	Name          string
	CategoryID    string
	Price         int64
	SalePrice     *int64
	SaleStartDate *time.Time
	SaleEndDate   *time.Time
	Stock         int
	Rating        float64
}

// ProductUpdate changes only the non-nil fields. ClearSale drops the sale
// price and window before the sale fields are applied.
type ProductUpdate struct {
	Name          *string
	CategoryID    *string
	Price         *int64
	SalePrice     *int64
	SaleStartDate *time.Time
	SaleEndDate   *time.Time
	ClearSale     bool
}

func (s *CatalogService) FindProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.catalog.FindProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, apperrors.CodeNotFound, "product not found")
	}
	return p, nil
}

// GetProduct is the storefront lookup. Archived products are hidden.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.FindProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsArchived {
		return nil, apperrors.New(apperrors.CodeNotFound, "product not found")
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, includeArchived bool) ([]models.Product, error) {
	return s.catalog.ListProducts(ctx, includeArchived)
}

func (s *CatalogService) ListVariants(ctx context.Context, productID string) ([]models.ProductVariant, error) {
	if _, err := s.FindProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.catalog.ListVariants(ctx, productID)
}

// CreateProduct stores the product with a zero counter and posts the initial
// stock as RESTOCK so the ledger reconstructs it.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	in.Slug = strings.TrimSpace(in.Slug)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateProduct(in); err != nil {
		return nil, err
	}

	now := s.clock.now()
	p := &models.Product{
		ID:            s.newID.next(),
		Slug:          in.Slug,
		Name:          in.Name,
		CategoryID:    in.CategoryID,
		Price:         in.Price,
		SalePrice:     in.SalePrice,
		SaleStartDate: in.SaleStartDate,
		SaleEndDate:   in.SaleEndDate,
		Rating:        in.Rating,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.catalog.CreateProduct(ctx, p); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperrors.WithMetadata(apperrors.CodeConflict, "slug already in use", map[string]string{"field": "slug"})
			}
			return fmt.Errorf("create product: %w", err)
		}
		if in.Stock == 0 {
			return nil
		}
		return s.inventory.Post(ctx, &models.InventoryLog{
			ProductID:   p.ID,
			Change:      in.Stock,
			Reason:      models.ReasonRestock,
			ReferenceID: &p.ID,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}
	p.Stock = in.Stock
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductUpdate) (*models.Product, error) {
	var (
		updated      *models.Product
		priceChanged bool
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := s.FindProduct(ctx, id)
		if err != nil {
			return err
		}
		before := p.EffectivePrice(s.clock.now())

		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.CategoryID != nil {
			p.CategoryID = *in.CategoryID
		}
		if in.Price != nil {
			p.Price = *in.Price
		}
		if in.ClearSale {
			p.SalePrice, p.SaleStartDate, p.SaleEndDate = nil, nil, nil
		}
		if in.SalePrice != nil {
			p.SalePrice = in.SalePrice
		}
		if in.SaleStartDate != nil {
			p.SaleStartDate = in.SaleStartDate
		}
		if in.SaleEndDate != nil {
			p.SaleEndDate = in.SaleEndDate
		}

		if err := validateProduct(ProductInput{
			Slug: p.Slug, Name: p.Name, Price: p.Price,
			SalePrice: p.SalePrice, SaleStartDate: p.SaleStartDate, SaleEndDate: p.SaleEndDate,
		}); err != nil {
			return err
		}

		p.UpdatedAt = s.clock.now()
		if err := s.catalog.UpdateProduct(ctx, p); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		priceChanged = p.EffectivePrice(p.UpdatedAt) != before
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if priceChanged && s.alerts != nil {
		if _, err := s.alerts.Evaluate(ctx, id); err != nil {
			log.Printf("catalog: price alert evaluation failed product=%s err=%v", id, err)
		}
	}
	return updated, nil
}

// ArchiveProduct hides the product from the storefront. Products are never
// deleted because past orders reference them.
func (s *CatalogService) ArchiveProduct(ctx context.Context, id string) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := s.FindProduct(ctx, id)
		if err != nil {
			return err
		}
		if p.IsArchived {
			return nil
		}
		p.IsArchived = true
		p.UpdatedAt = s.clock.now()
		return s.catalog.UpdateProduct(ctx, p)
	})
}

type VariantInput struct {
	Name  string
	Price *int64
	Stock int
}

func (s *CatalogService) CreateVariant(ctx context.Context, productID string, in VariantInput) (*models.ProductVariant, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperrors.WithMetadata(apperrors.CodeValidation, "name is required", map[string]string{"field": "name"})
	}
	if in.Price != nil && *in.Price <= 0 {
		return nil, apperrors.WithMetadata(apperrors.CodeValidation, "price must be positive", map[string]string{"field": "price"})
	}
	if in.Stock < 0 {
		return nil, apperrors.WithMetadata(apperrors.CodeValidation, "stock must not be negative", map[string]string{"field": "stock"})
	}

	v := &models.ProductVariant{
		ID:        s.newID.next(),
		ProductID: productID,
		Name:      in.Name,
		Price:     in.Price,
		CreatedAt: s.clock.now(),
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.FindProduct(ctx, productID); err != nil {
			return err
		}
		if err := s.catalog.CreateVariant(ctx, v); err != nil {
			return fmt.Errorf("create variant: %w", err)
		}
		if in.Stock == 0 {
			return nil
		}
		return s.inventory.Post(ctx, &models.InventoryLog{
			ProductID:   productID,
			VariantID:   &v.ID,
			Change:      in.Stock,
			Reason:      models.ReasonRestock,
			ReferenceID: &v.ID,
			CreatedAt:   v.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	v.Stock = in.Stock
	return v, nil
}

func validateProduct(in ProductInput) error {
	field := func(name, msg string) error {
		return apperrors.WithMetadata(apperrors.CodeValidation, msg, map[string]string{"field": name})
	}
	switch {
	case in.Slug == "":
		return field("slug", "slug is required")
	case in.Name == "":
		return field("name", "name is required")
	case in.Price <= 0:
		return field("price", "price must be positive")
	case in.Stock < 0:
		return field("stock", "stock must not be negative")
	case in.SalePrice != nil && (*in.SalePrice <= 0 || *in.SalePrice > in.Price):
		return field("salePrice", "sale price must be positive and not above the base price")
	case in.SaleStartDate != nil && in.SaleEndDate != nil && in.SaleEndDate.Before(*in.SaleStartDate):
		return field("saleEndDate", "sale end must not be before sale start")
	}
	return nil
}
