package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-order-service/internal/apperror"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/jmoiron/sqlx"
)

// Times and the weekday array are read as text and parsed by the engine, so
// one malformed row cannot fail the scan of the whole catalog.
const selectPromotion = `
    SELECT id, name, type, value, min_amount, max_discount, valid_from, valid_until,
           CAST(start_time AS TEXT) AS start_time,
           CAST(end_time AS TEXT) AS end_time,
           CAST(days_of_week AS TEXT) AS days_of_week,
           max_uses, current_uses, is_active, created_at, updated_at
    FROM promotions`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) ListActive(ctx context.Context) ([]model.Promotion, error) {
	items := []model.Promotion{}
	err := r.DB.SelectContext(ctx, &items, selectPromotion+` WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active promotions: %w", err)
	}
	return items, nil
}

func (r *PGRepository) GetByID(ctx context.Context, q sqlx.ExtContext, id string) (*model.Promotion, error) {
	var p model.Promotion
	err := sqlx.GetContext(ctx, q, &p, q.Rebind(selectPromotion+` WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) IncrementUsage(ctx context.Context, q sqlx.ExtContext, id string) error {
	query := `
        UPDATE promotions
        SET current_uses = current_uses + 1, updated_at = ?
        WHERE id = ? AND (max_uses IS NULL OR current_uses < max_uses)
    `
	res, err := q.ExecContext(ctx, q.Rebind(query), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("increment usage of promotion %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists int
	if err := sqlx.GetContext(ctx, q, &exists, q.Rebind(`SELECT count(*) FROM promotions WHERE id = ?`), id); err != nil {
		return err
	}
	if exists == 0 {
		return apperror.NotFound("promotion %s", id)
	}
	return apperror.FailedPrecondition("promotion %s has reached its usage limit", id)
}
