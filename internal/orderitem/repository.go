package orderitem

import (
	"context"

	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/jmoiron/sqlx"
)

// Repository reads and writes order_items and the cached totals of their
// order. Methods taking q run on the caller's transaction.
type Repository interface {
	// LockOrder reads the order row FOR UPDATE. Returns nil when it does not exist.
	LockOrder(ctx context.Context, q sqlx.ExtContext, orderID string) (*model.Order, error)
	FindOrder(ctx context.Context, q sqlx.ExtContext, orderID string) (*model.Order, error)

	Create(ctx context.Context, q sqlx.ExtContext, item *model.OrderItem) error
	// GetForUpdate reads the item row FOR UPDATE. Returns nil when it does not exist.
	GetForUpdate(ctx context.Context, q sqlx.ExtContext, itemID string) (*model.OrderItem, error)
	Update(ctx context.Context, q sqlx.ExtContext, item *model.OrderItem) error
	Delete(ctx context.Context, q sqlx.ExtContext, itemID string) error

	FindByID(ctx context.Context, itemID string) (*model.OrderItem, error)
	ListByOrder(ctx context.Context, q sqlx.ExtContext, orderID string) ([]model.OrderItem, error)

	// RefreshTotals recomputes order.Subtotal from its items, sets
	// Total = Subtotal - Discount and writes both back.
	RefreshTotals(ctx context.Context, q sqlx.ExtContext, order *model.Order) error
}
