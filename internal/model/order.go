package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusPreparing: true, OrderStatusPaid: true, OrderStatusCancelled: true},
	OrderStatusPreparing: {OrderStatusReady: true, OrderStatusPaid: true, OrderStatusCancelled: true},
	OrderStatusReady:     {OrderStatusServed: true, OrderStatusPaid: true, OrderStatusCancelled: true},
	OrderStatusServed:    {OrderStatusPaid: true, OrderStatusCancelled: true},
	OrderStatusPaid:      {},
	OrderStatusCancelled: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// IsTerminal reports whether the order no longer accepts line item changes.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

type Order struct {
	BaseModel
	Status      OrderStatus     `db:"status" json:"status"`
	TableLabel  *string         `db:"table_label" json:"table_label"`
	Subtotal    decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount    decimal.Decimal `db:"discount" json:"discount"`
	Total       decimal.Decimal `db:"total" json:"total"`
	PromotionID *string         `db:"promotion_id" json:"promotion_id"`
	CreatedBy   *string         `db:"created_by" json:"created_by"`
	PaidAt      *time.Time      `db:"paid_at" json:"paid_at"`
	Items       []OrderItem     `db:"-" json:"items,omitempty"`
}

type OrderItem struct {
	BaseModel
	OrderID     string          `db:"order_id" json:"order_id"`
	VariantID   string          `db:"variant_id" json:"variant_id"`
	Quantity    int64           `db:"quantity" json:"quantity"`
	PriceAtSale decimal.Decimal `db:"price_at_sale" json:"price_at_sale"`
	Subtotal    decimal.Decimal `db:"subtotal" json:"subtotal"`
	Note        *string         `db:"note" json:"note"`
	// Keg and liters per unit captured when the item was added. Updates and
	// deletes reverse the ledger debit with these values, not the variant's current ones.
	KegID         *string         `db:"keg_id" json:"keg_id"`
	ServingLiters decimal.Decimal `db:"serving_liters" json:"serving_liters"`
}

// DispensedLiters is the keg volume drawn for quantity units of this item.
func (i *OrderItem) DispensedLiters(quantity int64) decimal.Decimal {
	return i.ServingLiters.Mul(decimal.NewFromInt(quantity))
}
