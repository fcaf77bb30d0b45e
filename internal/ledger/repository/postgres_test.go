package repository_test

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-order-service/internal/apperror"
	"github.com/fekuna/omnipos-order-service/internal/database/dbtest"
	"github.com/fekuna/omnipos-order-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-order-service/internal/ledger/repository"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAdjustStockWritesMovement(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewPGRepository(db, true)
	variantID := dbtest.SeedVariant(t, db, 20, "", "")
	refID := "item-1"
	user := "staff-7"

	m, err := repo.AdjustStock(context.Background(), db, &dto.StockAdjustment{
		VariantID: variantID,
		Delta:     -3,
		Reference: dto.Reference{Type: model.ReferenceOrderItem, ID: &refID, CreatedBy: &user},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(17), dbtest.VariantStock(t, db, variantID))
	assert.Equal(t, model.LedgerVariantStock, m.Ledger)
	assert.True(t, m.QuantityBefore.Equal(dec("20")))
	assert.True(t, m.QuantityAfter.Equal(dec("17")))
	assert.True(t, m.QuantityChange.Equal(dec("-3")))
	assert.Equal(t, 1, dbtest.CountRows(t, db, "inventory_movements"))

	mvs, total, err := repo.ListMovements(context.Background(), &dto.MovementFilters{SubjectID: variantID})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, refID, *mvs[0].ReferenceID)
	assert.Equal(t, user, *mvs[0].CreatedBy)
	assert.Equal(t, model.ReferenceOrderItem, *mvs[0].ReferenceType)
}

func TestAdjustKegWritesMovement(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewPGRepository(db, true)
	kegID := dbtest.SeedKeg(t, db, "30", "30")

	m, err := repo.AdjustKeg(context.Background(), db, &dto.KegAdjustment{KegID: kegID, DeltaLiters: dec("-1.5")})

	require.NoError(t, err)
	assert.True(t, dbtest.KegRemaining(t, db, kegID).Equal(dec("28.5")))
	assert.Equal(t, model.LedgerKegVolume, m.Ledger)
	assert.True(t, m.QuantityBefore.Equal(dec("30")))
	assert.True(t, m.QuantityAfter.Equal(dec("28.5")))
	assert.Nil(t, m.ReferenceType)
}

func TestAdjustUnknownSubject(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	for _, allowNegative := range []bool{true, false} {
		repo := repository.NewPGRepository(db, allowNegative)

		_, err := repo.AdjustStock(ctx, db, &dto.StockAdjustment{VariantID: "missing", Delta: -1})
		assert.ErrorIs(t, err, apperror.ErrNotFound)

		_, err = repo.AdjustKeg(ctx, db, &dto.KegAdjustment{KegID: "missing", DeltaLiters: dec("-0.5")})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	}
	assert.Equal(t, 0, dbtest.CountRows(t, db, "inventory_movements"))
}

func TestNegativeBalancePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed", func(t *testing.T) {
		db := dbtest.New(t)
		repo := repository.NewPGRepository(db, true)
		variantID := dbtest.SeedVariant(t, db, 2, "", "")
		kegID := dbtest.SeedKeg(t, db, "20", "1")

		_, err := repo.AdjustStock(ctx, db, &dto.StockAdjustment{VariantID: variantID, Delta: -5})
		require.NoError(t, err)
		_, err = repo.AdjustKeg(ctx, db, &dto.KegAdjustment{KegID: kegID, DeltaLiters: dec("-1.5")})
		require.NoError(t, err)

		assert.Equal(t, int64(-3), dbtest.VariantStock(t, db, variantID))
		assert.True(t, dbtest.KegRemaining(t, db, kegID).Equal(dec("-0.5")))
	})

	t.Run("refused", func(t *testing.T) {
		db := dbtest.New(t)
		repo := repository.NewPGRepository(db, false)
		variantID := dbtest.SeedVariant(t, db, 2, "", "")
		kegID := dbtest.SeedKeg(t, db, "20", "1")

		_, err := repo.AdjustStock(ctx, db, &dto.StockAdjustment{VariantID: variantID, Delta: -5})
		assert.ErrorIs(t, err, apperror.ErrFailedPrecondition)
		_, err = repo.AdjustKeg(ctx, db, &dto.KegAdjustment{KegID: kegID, DeltaLiters: dec("-1.5")})
		assert.ErrorIs(t, err, apperror.ErrFailedPrecondition)

		assert.Equal(t, int64(2), dbtest.VariantStock(t, db, variantID))
		assert.True(t, dbtest.KegRemaining(t, db, kegID).Equal(dec("1")))
		assert.Equal(t, 0, dbtest.CountRows(t, db, "inventory_movements"))

		// Credits and exact drains still pass the guard.
		_, err = repo.AdjustStock(ctx, db, &dto.StockAdjustment{VariantID: variantID, Delta: -2})
		require.NoError(t, err)
		_, err = repo.AdjustStock(ctx, db, &dto.StockAdjustment{VariantID: variantID, Delta: 4})
		require.NoError(t, err)
		assert.Equal(t, int64(4), dbtest.VariantStock(t, db, variantID))
	})
}

func TestGetVariantAndKeg(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewPGRepository(db, true)
	ctx := context.Background()
	kegID := dbtest.SeedKeg(t, db, "50", "42.5")
	variantID := dbtest.SeedVariant(t, db, 9, kegID, "0.568")

	v, err := repo.GetVariant(ctx, db, variantID)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, int64(9), v.StockQuantity)
	assert.True(t, v.IsKegLinked())
	assert.Equal(t, kegID, *v.KegID)
	assert.True(t, v.ServingLiters(dec("0.5")).Equal(dec("0.568")))

	k, err := repo.GetKeg(ctx, kegID)
	require.NoError(t, err)
	require.NotNil(t, k)
	assert.True(t, k.RemainingLiters.Equal(dec("42.5")))

	v, err = repo.GetVariant(ctx, db, "missing")
	assert.NoError(t, err)
	assert.Nil(t, v)
	k, err = repo.GetKeg(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, k)
}

func TestListMovementsFiltersAndPages(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewPGRepository(db, true)
	ctx := context.Background()
	variantID := dbtest.SeedVariant(t, db, 100, "", "")
	kegID := dbtest.SeedKeg(t, db, "30", "30")

	for i := 0; i < 5; i++ {
		_, err := repo.AdjustStock(ctx, db, &dto.StockAdjustment{VariantID: variantID, Delta: -1})
		require.NoError(t, err)
	}
	_, err := repo.AdjustKeg(ctx, db, &dto.KegAdjustment{
		KegID: kegID, DeltaLiters: dec("10"), Reference: dto.Reference{Type: model.ReferenceKegRefill},
	})
	require.NoError(t, err)

	all, total, err := repo.ListMovements(ctx, &dto.MovementFilters{})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Len(t, all, 6)

	page, total, err := repo.ListMovements(ctx, &dto.MovementFilters{Ledger: model.LedgerVariantStock, Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 2)

	refills, total, err := repo.ListMovements(ctx, &dto.MovementFilters{ReferenceType: model.ReferenceKegRefill})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, kegID, refills[0].SubjectID)
}
