package repository

import (
	"context"
	"database/sql"

	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

type InventoryRepo struct {
	db *sql.DB
}

func NewInventoryRepo(db *sql.DB) *InventoryRepo {
	return &InventoryRepo{db: db}
}

func (r *InventoryRepo) Append(ctx context.Context, entry *models.InventoryLog) error {
	query := `
		INSERT INTO inventory_logs (product_id, variant_id, change, reason, reference_id, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return conn(ctx, r.db).QueryRowContext(ctx, query,
		entry.ProductID,
		entry.VariantID,
		entry.Change,
		string(entry.Reason),
		entry.ReferenceID,
		entry.UserID,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

func (r *InventoryRepo) ListByReference(ctx context.Context, referenceID string) ([]models.InventoryLog, error) {
	query := `
		SELECT id, product_id, variant_id, change, reason, reference_id, user_id, created_at
		FROM inventory_logs
		WHERE reference_id = $1
		ORDER BY id
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, referenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.InventoryLog
	for rows.Next() {
		var (
			e         models.InventoryLog
			variantID sql.NullString
			refID     sql.NullString
			userID    sql.NullString
			reason    string
		)
		if err := rows.Scan(&e.ID, &e.ProductID, &variantID, &e.Change, &reason, &refID, &userID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Reason = models.InventoryReason(reason)
		e.VariantID = stringPtr(variantID)
		e.ReferenceID = stringPtr(refID)
		e.UserID = stringPtr(userID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SumChanges reconstructs stock from the ledger. A nil variantID sums product-level rows only.
func (r *InventoryRepo) SumChanges(ctx context.Context, productID string, variantID *string) (int, error) {
	query := `
		SELECT COALESCE(SUM(change), 0)
		FROM inventory_logs
		WHERE product_id = $1 AND variant_id IS NOT DISTINCT FROM $2
	`
	var total int
	err := conn(ctx, r.db).QueryRowContext(ctx, query, productID, variantID).Scan(&total)
	return total, err
}
