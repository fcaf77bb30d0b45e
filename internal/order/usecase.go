package order

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/fekuna/omnipos-order-service/internal/order/dto"
)

type UseCase interface {
	CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error)
	AdvanceStatus(ctx context.Context, orderID string, to model.OrderStatus) (*model.Order, error)
	// FinalizeOrder settles the order as paid. When promotionID is set the
	// promotion must apply to the subtotal at now, and one use of it is counted.
	FinalizeOrder(ctx context.Context, orderID string, promotionID *string, now time.Time) (*model.Order, error)
}
