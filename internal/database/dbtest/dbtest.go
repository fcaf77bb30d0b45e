// Package dbtest opens an in-memory SQLite database with the service schema
// so repository and usecase tests run real SQL without a Postgres server.
package dbtest

import (
	_ "embed"
	"fmt"
	"testing"
	"time"

	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql
var schema string

const DriverSQLite = "sqlite"

func New(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", uuid.NewString())
	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection keeps the in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func SeedKeg(t testing.TB, db *sqlx.DB, total, remaining string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	db.MustExec(`INSERT INTO kegs (id, name, total_liters, remaining_liters, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, "Keg "+id[:8], decimal.RequireFromString(total), decimal.RequireFromString(remaining), now, now)
	return id
}

// SeedVariant inserts a variant. kegID and servingLiters may be empty.
func SeedVariant(t testing.TB, db *sqlx.DB, stock int64, kegID, servingLiters string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()

	var keg any
	if kegID != "" {
		keg = kegID
	}
	serving := decimal.NullDecimal{}
	if servingLiters != "" {
		serving = decimal.NewNullDecimal(decimal.RequireFromString(servingLiters))
	}

	db.MustExec(`INSERT INTO product_variants
		(id, product_id, variant_name, stock_quantity, keg_id, serving_volume_liters, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		id, uuid.NewString(), "Variant "+id[:8], stock, keg, serving, now, now)
	return id
}

func SeedOrder(t testing.TB, db *sqlx.DB, status string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	db.MustExec(`INSERT INTO orders (id, status, subtotal, discount, total, created_at, updated_at)
		VALUES (?, ?, 0, 0, 0, ?, ?)`, id, status, now, now)
	return id
}

// SeedPromotion inserts p, defaulting the validity window to all of 2026.
func SeedPromotion(t testing.TB, db *sqlx.DB, p model.Promotion) string {
	t.Helper()
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt, p.UpdatedAt = now, now
	if p.ValidFrom.IsZero() {
		p.ValidFrom = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if p.ValidUntil.IsZero() {
		p.ValidUntil = time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	_, err := db.NamedExec(`
        INSERT INTO promotions (
            id, name, type, value, min_amount, max_discount, valid_from, valid_until,
            start_time, end_time, days_of_week, max_uses, current_uses, is_active, created_at, updated_at
        ) VALUES (
            :id, :name, :type, :value, :min_amount, :max_discount, :valid_from, :valid_until,
            :start_time, :end_time, :days_of_week, :max_uses, :current_uses, :is_active, :created_at, :updated_at
        )`, p)
	if err != nil {
		t.Fatalf("seed promotion: %v", err)
	}
	return p.ID
}

func VariantStock(t testing.TB, db *sqlx.DB, variantID string) int64 {
	t.Helper()
	var stock int64
	if err := db.Get(&stock, `SELECT stock_quantity FROM product_variants WHERE id = ?`, variantID); err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return stock
}

func KegRemaining(t testing.TB, db *sqlx.DB, kegID string) decimal.Decimal {
	t.Helper()
	var remaining decimal.Decimal
	if err := db.Get(&remaining, `SELECT remaining_liters FROM kegs WHERE id = ?`, kegID); err != nil {
		t.Fatalf("read keg: %v", err)
	}
	return remaining
}

func CountRows(t testing.TB, db *sqlx.DB, table string) int {
	t.Helper()
	var n int
	if err := db.Get(&n, `SELECT count(*) FROM `+table); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
