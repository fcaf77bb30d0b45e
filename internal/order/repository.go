package order

import (
	"context"

	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/fekuna/omnipos-order-service/internal/order/dto"
	"github.com/jmoiron/sqlx"
)

// Repository reads and writes the orders table. Line items and their totals
// are owned by the orderitem repository.
type Repository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, q sqlx.ExtContext, orderID string) (*model.Order, error)
	// LockByID reads the order row FOR UPDATE. Returns nil when it does not exist.
	LockByID(ctx context.Context, q sqlx.ExtContext, orderID string) (*model.Order, error)
	UpdateStatus(ctx context.Context, q sqlx.ExtContext, order *model.Order) error
	// SaveFinalized writes the settled totals, promotion, status and paid_at.
	SaveFinalized(ctx context.Context, q sqlx.ExtContext, order *model.Order) error
	FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error)
}
