package usecase

import (
	"context"

	"github.com/fekuna/omnipos-order-service/internal/apperror"
	"github.com/fekuna/omnipos-order-service/internal/database"
	"github.com/fekuna/omnipos-order-service/internal/ledger"
	"github.com/fekuna/omnipos-order-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-order-service/internal/logger"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/fekuna/omnipos-order-service/internal/telemetry"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var stockReferenceTypes = map[string]bool{
	model.ReferenceManual:    true,
	model.ReferenceRestock:   true,
	model.ReferenceStocktake: true,
}

var kegReferenceTypes = map[string]bool{
	model.ReferenceManual:    true,
	model.ReferenceKegRefill: true,
	model.ReferenceStocktake: true,
}

type ledgerUseCase struct {
	tx     database.Transactor
	repo   ledger.Repository
	logger logger.ZapLogger
}

func NewLedgerUseCase(tx database.Transactor, repo ledger.Repository, log logger.ZapLogger) ledger.UseCase {
	return &ledgerUseCase{
		tx:     tx,
		repo:   repo,
		logger: log,
	}
}

func (uc *ledgerUseCase) GetVariantStock(ctx context.Context, variantID string) (*model.ProductVariant, error) {
	var v *model.ProductVariant
	err := uc.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		v, err = uc.repo.GetVariant(ctx, tx, variantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperror.NotFound("variant %s", variantID)
	}
	return v, nil
}

func (uc *ledgerUseCase) GetKeg(ctx context.Context, kegID string) (*model.Keg, error) {
	k, err := uc.repo.GetKeg(ctx, kegID)
	if err != nil {
		return nil, err
	}
	if k == nil {
		return nil, apperror.NotFound("keg %s", kegID)
	}
	return k, nil
}

func (uc *ledgerUseCase) AdjustVariantStock(ctx context.Context, input *dto.AdjustStockInput) (*model.InventoryMovement, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ledger.AdjustVariantStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("variant.id", input.VariantID),
		attribute.Int64("quantity.change", input.QuantityChange),
	)

	if input.VariantID == "" {
		return nil, apperror.InvalidArgument("variant id is required")
	}
	if input.QuantityChange == 0 {
		return nil, apperror.InvalidArgument("quantity change must not be zero")
	}
	refType := referenceType(input.ReferenceType)
	if !stockReferenceTypes[refType] {
		return nil, apperror.InvalidArgument("reference type %q is not valid for variant stock", refType)
	}

	adj := &dto.StockAdjustment{
		VariantID: input.VariantID,
		Delta:     input.QuantityChange,
		Reference: reference(refType, input.ReferenceID, input.Reason, input.UserID),
	}

	var movement *model.InventoryMovement
	err := uc.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		movement, err = uc.repo.AdjustStock(ctx, tx, adj)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	uc.logger.Info("variant stock adjusted",
		zap.String("variant_id", input.VariantID),
		zap.Int64("change", input.QuantityChange),
		zap.String("after", movement.QuantityAfter.String()),
		zap.String("reference_type", refType),
	)
	return movement, nil
}

func (uc *ledgerUseCase) AdjustKegVolume(ctx context.Context, input *dto.AdjustKegInput) (*model.InventoryMovement, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ledger.AdjustKegVolume")
	defer span.End()
	span.SetAttributes(
		attribute.String("keg.id", input.KegID),
		attribute.String("liters.change", input.LitersChange.String()),
	)

	if input.KegID == "" {
		return nil, apperror.InvalidArgument("keg id is required")
	}
	if input.LitersChange.IsZero() {
		return nil, apperror.InvalidArgument("liters change must not be zero")
	}
	refType := referenceType(input.ReferenceType)
	if !kegReferenceTypes[refType] {
		return nil, apperror.InvalidArgument("reference type %q is not valid for a keg", refType)
	}

	adj := &dto.KegAdjustment{
		KegID:       input.KegID,
		DeltaLiters: input.LitersChange,
		Reference:   reference(refType, input.ReferenceID, input.Reason, input.UserID),
	}

	var movement *model.InventoryMovement
	err := uc.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		movement, err = uc.repo.AdjustKeg(ctx, tx, adj)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	uc.logger.Info("keg volume adjusted",
		zap.String("keg_id", input.KegID),
		zap.String("change", input.LitersChange.String()),
		zap.String("after", movement.QuantityAfter.String()),
		zap.String("reference_type", refType),
	)
	return movement, nil
}

func (uc *ledgerUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
	if filters.Ledger != "" && filters.Ledger != model.LedgerVariantStock && filters.Ledger != model.LedgerKegVolume {
		return nil, 0, apperror.InvalidArgument("unknown ledger %q", filters.Ledger)
	}
	if filters.Page < 0 || filters.PageSize < 0 {
		return nil, 0, apperror.InvalidArgument("page and page size must not be negative")
	}
	return uc.repo.ListMovements(ctx, filters)
}

func referenceType(t string) string {
	if t == "" {
		return model.ReferenceManual
	}
	return t
}

func reference(refType, refID, notes, userID string) dto.Reference {
	ref := dto.Reference{Type: refType, Notes: notes}
	if refID != "" {
		ref.ID = &refID
	}
	if userID != "" {
		ref.CreatedBy = &userID
	}
	return ref
}
