package model

import "github.com/shopspring/decimal"

type ProductVariant struct {
	BaseModel
	ProductID     string  `db:"product_id" json:"product_id"`
	VariantName   string  `db:"variant_name" json:"variant_name"`
	StockQuantity int64   `db:"stock_quantity" json:"stock_quantity"`
	KegID         *string `db:"keg_id" json:"keg_id"` // Nullable, set for draught pours
	// Liters drawn from the keg per unit sold. Null falls back to the configured default.
	ServingVolumeLiters decimal.NullDecimal `db:"serving_volume_liters" json:"serving_volume_liters"`
	IsActive            bool                `db:"is_active" json:"is_active"`
}

// ServingLiters resolves the dispense volume for one unit of this variant.
func (v *ProductVariant) ServingLiters(fallback decimal.Decimal) decimal.Decimal {
	if v.ServingVolumeLiters.Valid {
		return v.ServingVolumeLiters.Decimal
	}
	return fallback
}

func (v *ProductVariant) IsKegLinked() bool {
	return v.KegID != nil && *v.KegID != ""
}

type Keg struct {
	BaseModel
	Name            string          `db:"name" json:"name"`
	TotalLiters     decimal.Decimal `db:"total_liters" json:"total_liters"`
	RemainingLiters decimal.Decimal `db:"remaining_liters" json:"remaining_liters"`
}
