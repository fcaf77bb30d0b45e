package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promotion is the stored catalog row. Time-of-day and weekday columns are kept
// raw here and parsed into typed rules by the promotion package, so a single
// malformed row can be skipped without failing the whole catalog read.
type Promotion struct {
	BaseModel
	Name        string              `db:"name" json:"name"`
	Type        string              `db:"type" json:"type"`
	Value       decimal.Decimal     `db:"value" json:"value"`
	MinAmount   decimal.NullDecimal `db:"min_amount" json:"min_amount"`
	MaxDiscount decimal.NullDecimal `db:"max_discount" json:"max_discount"`
	ValidFrom   time.Time           `db:"valid_from" json:"valid_from"`
	ValidUntil  time.Time           `db:"valid_until" json:"valid_until"`
	StartTime   *string             `db:"start_time" json:"start_time"`     // HH:MM[:SS]
	EndTime     *string             `db:"end_time" json:"end_time"`         // HH:MM[:SS]
	DaysOfWeek  *string             `db:"days_of_week" json:"days_of_week"` // JSON array
	MaxUses     *int64              `db:"max_uses" json:"max_uses"`
	CurrentUses int64               `db:"current_uses" json:"current_uses"`
	IsActive    bool                `db:"is_active" json:"is_active"`
}
