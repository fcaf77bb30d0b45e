package orderitem

import (
	"context"

	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/fekuna/omnipos-order-service/internal/orderitem/dto"
)

type UseCase interface {
	AddItem(ctx context.Context, input *dto.AddItemInput) (*model.OrderItem, error)
	UpdateItem(ctx context.Context, input *dto.UpdateItemInput) (*model.OrderItem, error)
	DeleteItem(ctx context.Context, itemID string) error
	GetItem(ctx context.Context, itemID string) (*model.OrderItem, error)
	ListItems(ctx context.Context, orderID string) ([]model.OrderItem, error)
}
