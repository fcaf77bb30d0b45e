package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Ledger string

const (
	LedgerVariantStock Ledger = "variant_stock"
	LedgerKegVolume    Ledger = "keg_volume"
)

const (
	ReferenceOrderItem = "order_item"
	ReferenceManual    = "manual_adjustment"
	ReferenceRestock   = "restock"
	ReferenceKegRefill = "keg_refill"
	ReferenceStocktake = "stocktake"
)

// InventoryMovement is one append-only journal row written by every ledger adjustment.
type InventoryMovement struct {
	ID             string          `db:"id" json:"id"`
	Ledger         Ledger          `db:"ledger" json:"ledger"`
	SubjectID      string          `db:"subject_id" json:"subject_id"`
	QuantityChange decimal.Decimal `db:"quantity_change" json:"quantity_change"`
	QuantityBefore decimal.Decimal `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  decimal.Decimal `db:"quantity_after" json:"quantity_after"`
	ReferenceType  *string         `db:"reference_type" json:"reference_type"`
	ReferenceID    *string         `db:"reference_id" json:"reference_id"`
	Notes          string          `db:"notes" json:"notes"`
	CreatedBy      *string         `db:"created_by" json:"created_by"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
