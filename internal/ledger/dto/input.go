package dto

import "github.com/shopspring/decimal"

type AdjustStockInput struct {
	VariantID      string
	QuantityChange int64
	Reason         string
	ReferenceID    string
	ReferenceType  string // 'manual_adjustment', 'restock', 'stocktake'
	UserID         string
}

type AdjustKegInput struct {
	KegID         string
	LitersChange  decimal.Decimal
	Reason        string
	ReferenceID   string
	ReferenceType string // 'manual_adjustment', 'keg_refill', 'stocktake'
	UserID        string
}
