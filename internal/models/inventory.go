package models

import "time"

type InventoryReason string

const (
	ReasonOrderPlaced      InventoryReason = "ORDER_PLACED"
	ReasonOrderCancelled   InventoryReason = "ORDER_CANCELLED"
	ReasonManualAdjustment InventoryReason = "MANUAL_ADJUSTMENT"
	ReasonRestock          InventoryReason = "RESTOCK"
)

// Valid reports whether r is one of the closed set of reasons.
func (r InventoryReason) Valid() bool {
	switch r {
	case ReasonOrderPlaced, ReasonOrderCancelled, ReasonManualAdjustment, ReasonRestock:
		return true
	}
	return false
}

// InventoryLog is an append-only stock delta.
type InventoryLog struct {
	ID          int64           `json:"id"`
	ProductID   string          `json:"productId"`
	VariantID   *string         `json:"variantId,omitempty"`
	Change      int             `json:"change"`
	Reason      InventoryReason `json:"reason"`
	ReferenceID *string         `json:"referenceId,omitempty"`
	UserID      *string         `json:"userId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// StockReconciliation compares the ledger sum with the denormalized counter.
type StockReconciliation struct {
	ProductID    string  `json:"productId"`
	VariantID    *string `json:"variantId,omitempty"`
	LedgerStock  int     `json:"ledgerStock"`
	CounterStock int     `json:"counterStock"`
	InSync       bool    `json:"inSync"`
}
