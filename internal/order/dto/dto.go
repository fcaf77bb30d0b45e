package dto

import "github.com/fekuna/omnipos-order-service/internal/model"

type CreateOrderInput struct {
	TableLabel *string
}

type OrderFilters struct {
	Status   model.OrderStatus
	Page     int
	PageSize int
}
