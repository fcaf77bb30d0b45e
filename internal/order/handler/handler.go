package handler

import (
	"net/http"
	"time"

	"github.com/fekuna/omnipos-order-service/internal/httpx"
	"github.com/fekuna/omnipos-order-service/internal/logger"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/fekuna/omnipos-order-service/internal/order"
	"github.com/fekuna/omnipos-order-service/internal/order/dto"
	"github.com/go-chi/chi/v5"
)

type OrderHandler struct {
	uc     order.UseCase
	logger logger.ZapLogger
	now    func() time.Time
}

func NewOrderHandler(uc order.UseCase, log logger.ZapLogger) *OrderHandler {
	return &OrderHandler{
		uc:     uc,
		logger: log,
		now:    time.Now,
	}
}

func (h *OrderHandler) Register(r chi.Router) {
	r.Post("/orders", h.CreateOrder)
	r.Get("/orders", h.ListOrders)
	r.Get("/orders/{orderID}", h.GetOrder)
	r.Patch("/orders/{orderID}/status", h.AdvanceStatus)
	r.Post("/orders/{orderID}/finalize", h.FinalizeOrder)
}

type CreateOrderRequest struct {
	TableLabel *string `json:"table_label"`
}

type AdvanceStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

type FinalizeOrderRequest struct {
	PromotionID *string `json:"promotion_id"`
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, h.logger, err)
			return
		}
	}

	o, err := h.uc.CreateOrder(r.Context(), &dto.CreateOrderInput{TableLabel: req.TableLabel})
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.QueryInt(r, "page", 1)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	pageSize, err := httpx.QueryInt(r, "page_size", 50)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	orders, total, err := h.uc.ListOrders(r.Context(), &dto.OrderFilters{
		Status:   model.OrderStatus(r.URL.Query().Get("status")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.ListResponse[model.Order]{Items: orders, Total: total})
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.uc.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	var req AdvanceStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	o, err := h.uc.AdvanceStatus(r.Context(), chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

// FinalizeOrder accepts an empty body when no promotion is applied.
func (h *OrderHandler) FinalizeOrder(w http.ResponseWriter, r *http.Request) {
	var req FinalizeOrderRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, h.logger, err)
			return
		}
	}
	if req.PromotionID != nil && *req.PromotionID == "" {
		req.PromotionID = nil
	}

	o, err := h.uc.FinalizeOrder(r.Context(), chi.URLParam(r, "orderID"), req.PromotionID, h.now())
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}
