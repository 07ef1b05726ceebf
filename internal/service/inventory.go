package service

import (
	"context"
	"fmt"

	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

// InventoryService keeps the append-only ledger and the denormalized stock
// counters in step. Every posting touches both in the same transaction.
type InventoryService struct {
	tx      TxManager
	catalog CatalogRepo
	logs    InventoryRepo
	clock   Clock
}

func NewInventoryService(tx TxManager, catalog CatalogRepo, logs InventoryRepo, clock Clock) *InventoryService {
	return &InventoryService{tx: tx, catalog: catalog, logs: logs, clock: clock}
}

// Post appends entry and applies its change to the product or variant counter.
// Called with a transaction ctx it joins that transaction.
func (s *InventoryService) Post(ctx context.Context, entry *models.InventoryLog) error {
	if !entry.Reason.Valid() {
		return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("unknown inventory reason %q", entry.Reason))
	}
	if entry.Change == 0 {
		return apperrors.New(apperrors.CodeValidation, "inventory change must not be zero")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.now()
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.catalog.AddStock(ctx, entry.ProductID, entry.VariantID, entry.Change); err != nil {
			return notFound(err, apperrors.CodeNotFound, "product or variant not found")
		}
		if err := s.logs.Append(ctx, entry); err != nil {
			return fmt.Errorf("append inventory log: %w", err)
		}
		return nil
	})
}

type AdjustInput struct {
	ProductID string
	VariantID *string
	Change    int
	Reason    models.InventoryReason
	UserID    *string
}

// Adjust is the admin stock correction. Only MANUAL_ADJUSTMENT and RESTOCK
// may be posted by hand and the counter never goes below zero.
func (s *InventoryService) Adjust(ctx context.Context, in AdjustInput) (*models.InventoryLog, error) {
	if in.Reason != models.ReasonManualAdjustment && in.Reason != models.ReasonRestock {
		return nil, apperrors.WithMetadata(apperrors.CodeValidation, "reason must be MANUAL_ADJUSTMENT or RESTOCK",
			map[string]string{"field": "reason"})
	}

	entry := &models.InventoryLog{
		ProductID: in.ProductID,
		VariantID: in.VariantID,
		Change:    in.Change,
		Reason:    in.Reason,
		UserID:    in.UserID,
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		current, err := s.currentStock(ctx, in.ProductID, in.VariantID)
		if err != nil {
			return err
		}
		if current+in.Change < 0 {
			return apperrors.WithMetadata(apperrors.CodeInsufficientStock, "adjustment would make stock negative",
				map[string]string{"productId": in.ProductID, "stock": fmt.Sprint(current)})
		}
		return s.Post(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Reconcile compares the ledger sum with the stored counter.
func (s *InventoryService) Reconcile(ctx context.Context, productID string, variantID *string) (models.StockReconciliation, error) {
	counter, err := s.currentStock(ctx, productID, variantID)
	if err != nil {
		return models.StockReconciliation{}, err
	}
	ledger, err := s.logs.SumChanges(ctx, productID, variantID)
	if err != nil {
		return models.StockReconciliation{}, fmt.Errorf("sum inventory logs: %w", err)
	}
	return models.StockReconciliation{
		ProductID:    productID,
		VariantID:    variantID,
		LedgerStock:  ledger,
		CounterStock: counter,
		InSync:       ledger == counter,
	}, nil
}

// History lists the postings made under a reference such as an order id.
func (s *InventoryService) History(ctx context.Context, referenceID string) ([]models.InventoryLog, error) {
	return s.logs.ListByReference(ctx, referenceID)
}

func (s *InventoryService) currentStock(ctx context.Context, productID string, variantID *string) (int, error) {
	if variantID != nil {
		v, err := s.catalog.FindVariant(ctx, *variantID)
		if err != nil {
			return 0, notFound(err, apperrors.CodeNotFound, "variant not found")
		}
		if v.ProductID != productID {
			return 0, apperrors.New(apperrors.CodeVariantMismatch, "variant does not belong to product")
		}
		return v.Stock, nil
	}
	p, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		return 0, notFound(err, apperrors.CodeNotFound, "product not found")
	}
	return p.Stock, nil
}
