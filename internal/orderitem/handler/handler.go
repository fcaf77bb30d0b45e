package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-order-service/internal/httpx"
	"github.com/fekuna/omnipos-order-service/internal/logger"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/fekuna/omnipos-order-service/internal/orderitem"
	"github.com/fekuna/omnipos-order-service/internal/orderitem/dto"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type OrderItemHandler struct {
	uc     orderitem.UseCase
	logger logger.ZapLogger
}

func NewOrderItemHandler(uc orderitem.UseCase, log logger.ZapLogger) *OrderItemHandler {
	return &OrderItemHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *OrderItemHandler) Register(r chi.Router) {
	r.Post("/orders/{orderID}/items", h.AddItem)
	r.Get("/orders/{orderID}/items", h.ListItems)
	r.Get("/order-items/{itemID}", h.GetItem)
	r.Put("/order-items/{itemID}", h.UpdateItem)
	r.Delete("/order-items/{itemID}", h.DeleteItem)
}

type AddItemRequest struct {
	VariantID   string          `json:"variant_id"`
	Quantity    int64           `json:"quantity"`
	PriceAtSale decimal.Decimal `json:"price_at_sale"`
	Note        *string         `json:"note"`
}

type UpdateItemRequest struct {
	Quantity    int64           `json:"quantity"`
	PriceAtSale decimal.Decimal `json:"price_at_sale"`
}

func (h *OrderItemHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	item, err := h.uc.AddItem(r.Context(), &dto.AddItemInput{
		OrderID:     chi.URLParam(r, "orderID"),
		VariantID:   req.VariantID,
		Quantity:    req.Quantity,
		PriceAtSale: req.PriceAtSale,
		Note:        req.Note,
	})
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, item)
}

func (h *OrderItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.uc.ListItems(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.ListResponse[model.OrderItem]{Items: items, Total: len(items)})
}

func (h *OrderItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.uc.GetItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *OrderItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	item, err := h.uc.UpdateItem(r.Context(), &dto.UpdateItemInput{
		ItemID:      chi.URLParam(r, "itemID"),
		Quantity:    req.Quantity,
		PriceAtSale: req.PriceAtSale,
	})
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *OrderItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeleteItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
