package event

import "github.com/shopspring/decimal"

type OrderItemPayload struct {
	OrderID     string          `json:"order_id"`
	ItemID      string          `json:"item_id"`
	VariantID   string          `json:"variant_id"`
	Quantity    int64           `json:"quantity"`
	QuantityOld int64           `json:"quantity_old,omitempty"`
	PriceAtSale decimal.Decimal `json:"price_at_sale"`
	KegID       *string         `json:"keg_id,omitempty"`
}

type OrderFinalizedPayload struct {
	OrderID     string          `json:"order_id"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	PromotionID *string         `json:"promotion_id,omitempty"`
}

type VariantRestockedPayload struct {
	VariantID string `json:"variant_id"`
	Quantity  int64  `json:"quantity"`
	Notes     string `json:"notes"`
}

type KegRefilledPayload struct {
	KegID  string          `json:"keg_id"`
	Liters decimal.Decimal `json:"liters"`
	Notes  string          `json:"notes"`
}
