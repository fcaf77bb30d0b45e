package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-order-service/internal/apperror"
	"github.com/fekuna/omnipos-order-service/internal/database"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/fekuna/omnipos-order-service/internal/order/dto"
	"github.com/jmoiron/sqlx"
)

const orderColumns = `id, status, table_label, subtotal, discount, total, promotion_id,
        created_by, paid_at, created_at, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, o *model.Order) error {
	query := `
        INSERT INTO orders (
            id, status, table_label, subtotal, discount, total, created_by, created_at, updated_at
        )
        VALUES (
            :id, :status, :table_label, :subtotal, :discount, :total, :created_by, :created_at, :updated_at
        )
    `
	if _, err := r.DB.NamedExecContext(ctx, query, o); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, q sqlx.ExtContext, orderID string) (*model.Order, error) {
	return r.get(ctx, q, orderID, "")
}

func (r *PGRepository) LockByID(ctx context.Context, q sqlx.ExtContext, orderID string) (*model.Order, error) {
	return r.get(ctx, q, orderID, database.ForUpdate(q))
}

func (r *PGRepository) get(ctx context.Context, q sqlx.ExtContext, orderID, lock string) (*model.Order, error) {
	var o model.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?` + lock
	if err := sqlx.GetContext(ctx, q, &o, q.Rebind(query), orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read order %s: %w", orderID, err)
	}
	return &o, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, q sqlx.ExtContext, o *model.Order) error {
	query := `UPDATE orders SET status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, q, query, o)
	if err != nil {
		return fmt.Errorf("update status of order %s: %w", o.ID, err)
	}
	return requireOneRow(res, o.ID)
}

func (r *PGRepository) SaveFinalized(ctx context.Context, q sqlx.ExtContext, o *model.Order) error {
	query := `
        UPDATE orders
        SET status = :status, subtotal = :subtotal, discount = :discount, total = :total,
            promotion_id = :promotion_id, paid_at = :paid_at, updated_at = :updated_at
        WHERE id = :id
    `
	res, err := sqlx.NamedExecContext(ctx, q, query, o)
	if err != nil {
		return fmt.Errorf("finalize order %s: %w", o.ID, err)
	}
	return requireOneRow(res, o.ID)
}

func requireOneRow(res sql.Result, orderID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("order %s", orderID)
	}
	return nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.Order, int, error) {
	orders := []model.Order{}
	var count int

	whereClause := ""
	args := map[string]interface{}{}
	if f.Status != "" {
		whereClause = " WHERE status = :status"
		args["status"] = string(f.Status)
	}

	countQuery := "SELECT count(*) FROM orders" + whereClause
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

	query := "SELECT " + orderColumns + " FROM orders" + whereClause + " ORDER BY created_at DESC, id"
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

	err = nstmt.SelectContext(ctx, &orders, args)
	return orders, count, err
}
