package dto

import (
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/shopspring/decimal"
)

// Reference says why a ledger moved. It is copied onto the movement row.
type Reference struct {
	Type      string
	ID        *string
	Notes     string
	CreatedBy *string
}

type StockAdjustment struct {
	VariantID string
	Delta     int64
	Reference Reference
}

type KegAdjustment struct {
	KegID       string
	DeltaLiters decimal.Decimal
	Reference   Reference
}

type MovementFilters struct {
	Ledger        model.Ledger
	SubjectID     string
	ReferenceType string
	ReferenceID   string
	Page          int
	PageSize      int
}
