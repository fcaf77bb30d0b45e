package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-order-service/internal/apperror"
	"github.com/fekuna/omnipos-order-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PGRepository struct {
	DB *sqlx.DB

	// With allowNegative false a debit that would take a ledger below zero
	// matches no row and fails with FailedPrecondition.
	allowNegative bool
}

func NewPGRepository(db *sqlx.DB, allowNegative bool) *PGRepository {
	return &PGRepository{DB: db, allowNegative: allowNegative}
}

func (r *PGRepository) AdjustStock(ctx context.Context, q sqlx.ExtContext, adj *dto.StockAdjustment) (*model.InventoryMovement, error) {
	now := time.Now().UTC()

	query := `UPDATE product_variants SET stock_quantity = stock_quantity + ?, updated_at = ? WHERE id = ?`
	args := []any{adj.Delta, now, adj.VariantID}
	if !r.allowNegative && adj.Delta < 0 {
		query += ` AND stock_quantity + ? >= 0`
		args = append(args, adj.Delta)
	}
	query += ` RETURNING stock_quantity`

	var after int64
	if err := sqlx.GetContext(ctx, q, &after, q.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.explainMiss(ctx, q, "product_variants", "variant", adj.VariantID)
		}
		return nil, fmt.Errorf("adjust stock of variant %s: %w", adj.VariantID, err)
	}

	movement := newMovement(model.LedgerVariantStock, adj.VariantID,
		decimal.NewFromInt(adj.Delta), decimal.NewFromInt(after), adj.Reference, now)
	if err := r.logMovement(ctx, q, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

func (r *PGRepository) AdjustKeg(ctx context.Context, q sqlx.ExtContext, adj *dto.KegAdjustment) (*model.InventoryMovement, error) {
	now := time.Now().UTC()

	query := `UPDATE kegs SET remaining_liters = remaining_liters + ?, updated_at = ? WHERE id = ?`
	args := []any{adj.DeltaLiters, now, adj.KegID}
	if !r.allowNegative && adj.DeltaLiters.IsNegative() {
		query += ` AND remaining_liters + ? >= 0`
		args = append(args, adj.DeltaLiters)
	}
	query += ` RETURNING remaining_liters`

	var after decimal.Decimal
	if err := sqlx.GetContext(ctx, q, &after, q.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.explainMiss(ctx, q, "kegs", "keg", adj.KegID)
		}
		return nil, fmt.Errorf("adjust keg %s: %w", adj.KegID, err)
	}

	movement := newMovement(model.LedgerKegVolume, adj.KegID, adj.DeltaLiters, after, adj.Reference, now)
	if err := r.logMovement(ctx, q, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

// explainMiss tells an unknown id apart from a debit refused by the
// non-negative guard.
func (r *PGRepository) explainMiss(ctx context.Context, q sqlx.ExtContext, table, kind, id string) error {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, q.Rebind(`SELECT count(*) FROM `+table+` WHERE id = ?`), id); err != nil {
		return fmt.Errorf("lookup %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return apperror.NotFound("%s %s", kind, id)
	}
	return apperror.FailedPrecondition("insufficient %s balance for %s", kind, id)
}

func newMovement(ledger model.Ledger, subjectID string, change, after decimal.Decimal, ref dto.Reference, now time.Time) *model.InventoryMovement {
	var refType *string
	if ref.Type != "" {
		t := ref.Type
		refType = &t
	}
	return &model.InventoryMovement{
		ID:             uuid.NewString(),
		Ledger:         ledger,
		SubjectID:      subjectID,
		QuantityChange: change,
		QuantityBefore: after.Sub(change),
		QuantityAfter:  after,
		ReferenceType:  refType,
		ReferenceID:    ref.ID,
		Notes:          ref.Notes,
		CreatedBy:      ref.CreatedBy,
		CreatedAt:      now,
	}
}

func (r *PGRepository) logMovement(ctx context.Context, q sqlx.ExtContext, m *model.InventoryMovement) error {
	query := `
        INSERT INTO inventory_movements (
            id, ledger, subject_id,
            quantity_change, quantity_before, quantity_after,
            reference_type, reference_id, notes, created_by, created_at
        )
        VALUES (
            :id, :ledger, :subject_id,
            :quantity_change, :quantity_before, :quantity_after,
            :reference_type, :reference_id, :notes, :created_by, :created_at
        )
    `
	if _, err := sqlx.NamedExecContext(ctx, q, query, m); err != nil {
		return fmt.Errorf("failed to log movement: %w", err)
	}
	return nil
}

func (r *PGRepository) GetVariant(ctx context.Context, q sqlx.ExtContext, variantID string) (*model.ProductVariant, error) {
	var v model.ProductVariant
	query := `
        SELECT id, product_id, variant_name, stock_quantity, keg_id,
               serving_volume_liters, is_active, created_at, updated_at
        FROM product_variants WHERE id = ?
    `
	err := sqlx.GetContext(ctx, q, &v, q.Rebind(query), variantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *PGRepository) GetKeg(ctx context.Context, kegID string) (*model.Keg, error) {
	var k model.Keg
	query := `SELECT id, name, total_liters, remaining_liters, created_at, updated_at FROM kegs WHERE id = ?`
	err := r.DB.GetContext(ctx, &k, r.DB.Rebind(query), kegID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &k, nil
}

const movementColumns = `id, ledger, subject_id, quantity_change, quantity_before, quantity_after,
        reference_type, reference_id, notes, created_by, created_at`

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.InventoryMovement, int, error) {
	items := []model.InventoryMovement{}
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.Ledger != "" {
		conditions = append(conditions, "ledger = :ledger")
		args["ledger"] = string(f.Ledger)
	}
	if f.SubjectID != "" {
		conditions = append(conditions, "subject_id = :subject_id")
		args["subject_id"] = f.SubjectID
	}
	if f.ReferenceType != "" {
		conditions = append(conditions, "reference_type = :reference_type")
		args["reference_type"] = f.ReferenceType
	}
	if f.ReferenceID != "" {
		conditions = append(conditions, "reference_id = :reference_id")
		args["reference_id"] = f.ReferenceID
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM inventory_movements" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			rows.Close()
			return nil, 0, err
		}
	}
	rows.Close()

	query := "SELECT " + movementColumns + " FROM inventory_movements" + whereClause + " ORDER BY created_at DESC, id"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		offset := (page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}
