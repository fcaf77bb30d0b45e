package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-order-service/internal/apperror"
	"github.com/fekuna/omnipos-order-service/internal/database"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const itemColumns = `id, order_id, variant_id, quantity, price_at_sale, subtotal, note,
        keg_id, serving_liters, created_at, updated_at`

const orderColumns = `id, status, table_label, subtotal, discount, total, promotion_id,
        created_by, paid_at, created_at, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) LockOrder(ctx context.Context, q sqlx.ExtContext, orderID string) (*model.Order, error) {
	return r.getOrder(ctx, q, orderID, database.ForUpdate(q))
}

func (r *PGRepository) FindOrder(ctx context.Context, q sqlx.ExtContext, orderID string) (*model.Order, error) {
	return r.getOrder(ctx, q, orderID, "")
}

func (r *PGRepository) getOrder(ctx context.Context, q sqlx.ExtContext, orderID, lock string) (*model.Order, error) {
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

func (r *PGRepository) Create(ctx context.Context, q sqlx.ExtContext, item *model.OrderItem) error {
	query := `
        INSERT INTO order_items (
            id, order_id, variant_id, quantity, price_at_sale, subtotal, note,
            keg_id, serving_liters, created_at, updated_at
        )
        VALUES (
            :id, :order_id, :variant_id, :quantity, :price_at_sale, :subtotal, :note,
            :keg_id, :serving_liters, :created_at, :updated_at
        )
    `
	if _, err := sqlx.NamedExecContext(ctx, q, query, item); err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func (r *PGRepository) GetForUpdate(ctx context.Context, q sqlx.ExtContext, itemID string) (*model.OrderItem, error) {
	var item model.OrderItem
	query := `SELECT ` + itemColumns + ` FROM order_items WHERE id = ?` + database.ForUpdate(q)
	if err := sqlx.GetContext(ctx, q, &item, q.Rebind(query), itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock order item %s: %w", itemID, err)
	}
	return &item, nil
}

func (r *PGRepository) Update(ctx context.Context, q sqlx.ExtContext, item *model.OrderItem) error {
	query := `
        UPDATE order_items
        SET quantity = :quantity, price_at_sale = :price_at_sale, subtotal = :subtotal, updated_at = :updated_at
        WHERE id = :id
    `
	res, err := sqlx.NamedExecContext(ctx, q, query, item)
	if err != nil {
		return fmt.Errorf("update order item %s: %w", item.ID, err)
	}
	return requireOneRow(res, item.ID)
}

func (r *PGRepository) Delete(ctx context.Context, q sqlx.ExtContext, itemID string) error {
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM order_items WHERE id = ?`), itemID)
	if err != nil {
		return fmt.Errorf("delete order item %s: %w", itemID, err)
	}
	return requireOneRow(res, itemID)
}

func requireOneRow(res sql.Result, itemID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("order item %s", itemID)
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, itemID string) (*model.OrderItem, error) {
	var item model.OrderItem
	query := `SELECT ` + itemColumns + ` FROM order_items WHERE id = ?`
	if err := r.DB.GetContext(ctx, &item, r.DB.Rebind(query), itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *PGRepository) ListByOrder(ctx context.Context, q sqlx.ExtContext, orderID string) ([]model.OrderItem, error) {
	items := []model.OrderItem{}
	query := `SELECT ` + itemColumns + ` FROM order_items WHERE order_id = ? ORDER BY created_at, id`
	if err := sqlx.SelectContext(ctx, q, &items, q.Rebind(query), orderID); err != nil {
		return nil, fmt.Errorf("list items of order %s: %w", orderID, err)
	}
	return items, nil
}

// RefreshTotals sums item subtotals in decimal rather than with SQL SUM, so the
// result is exact on every backing store.
func (r *PGRepository) RefreshTotals(ctx context.Context, q sqlx.ExtContext, order *model.Order) error {
	var subtotals []decimal.Decimal
	if err := sqlx.SelectContext(ctx, q, &subtotals, q.Rebind(`SELECT subtotal FROM order_items WHERE order_id = ?`), order.ID); err != nil {
		return fmt.Errorf("sum items of order %s: %w", order.ID, err)
	}

	subtotal := decimal.Zero
	for _, s := range subtotals {
		subtotal = subtotal.Add(s)
	}
	order.Subtotal = subtotal
	order.Total = subtotal.Sub(order.Discount)
	order.UpdatedAt = time.Now().UTC()

	query := `UPDATE orders SET subtotal = :subtotal, total = :total, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, q, query, order); err != nil {
		return fmt.Errorf("update totals of order %s: %w", order.ID, err)
	}
	return nil
}
