package promotion

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type UseCase interface {
	GetValidPromotions(ctx context.Context, orderTotal decimal.Decimal, now time.Time) ([]Applicable, error)
	BestPromotion(ctx context.Context, orderTotal decimal.Decimal, now time.Time) (*Applicable, error)
	RecordUsage(ctx context.Context, promotionID string) error

	// ApplyToOrder checks one promotion against orderTotal and counts a use of
	// it on q. The caller commits q and then calls InvalidateCache.
	ApplyToOrder(ctx context.Context, q sqlx.ExtContext, promotionID string, orderTotal decimal.Decimal, now time.Time) (*Applicable, error)
	InvalidateCache(ctx context.Context)
}
