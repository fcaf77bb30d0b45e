package ledger

import (
	"context"

	"github.com/fekuna/omnipos-order-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-order-service/internal/model"
)

type UseCase interface {
	GetVariantStock(ctx context.Context, variantID string) (*model.ProductVariant, error)
	GetKeg(ctx context.Context, kegID string) (*model.Keg, error)
	AdjustVariantStock(ctx context.Context, input *dto.AdjustStockInput) (*model.InventoryMovement, error)
	AdjustKegVolume(ctx context.Context, input *dto.AdjustKegInput) (*model.InventoryMovement, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error)
}
