package dto

import "github.com/shopspring/decimal"

type AddItemInput struct {
	OrderID     string
	VariantID   string
	Quantity    int64
	PriceAtSale decimal.Decimal
	Note        *string
}

type UpdateItemInput struct {
	ItemID      string
	Quantity    int64
	PriceAtSale decimal.Decimal
}
