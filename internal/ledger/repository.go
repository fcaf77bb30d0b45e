package ledger

import (
	"context"

	"github.com/fekuna/omnipos-order-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/jmoiron/sqlx"
)

// StockLedger applies relative deltas to product_variants.stock_quantity.
// q is the caller's transaction; the write and its movement row commit or roll
// back together with everything else the caller did on q.
type StockLedger interface {
	AdjustStock(ctx context.Context, q sqlx.ExtContext, adj *dto.StockAdjustment) (*model.InventoryMovement, error)
}

// KegLedger applies relative deltas, in liters, to kegs.remaining_liters.
type KegLedger interface {
	AdjustKeg(ctx context.Context, q sqlx.ExtContext, adj *dto.KegAdjustment) (*model.InventoryMovement, error)
}

type Repository interface {
	StockLedger
	KegLedger

	GetVariant(ctx context.Context, q sqlx.ExtContext, variantID string) (*model.ProductVariant, error)
	GetKeg(ctx context.Context, kegID string) (*model.Keg, error)

	// Movements / Audit
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error)
}
