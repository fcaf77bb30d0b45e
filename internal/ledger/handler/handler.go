package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-order-service/internal/auth"
	"github.com/fekuna/omnipos-order-service/internal/httpx"
	"github.com/fekuna/omnipos-order-service/internal/ledger"
	"github.com/fekuna/omnipos-order-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-order-service/internal/logger"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type LedgerHandler struct {
	uc     ledger.UseCase
	logger logger.ZapLogger
}

func NewLedgerHandler(uc ledger.UseCase, log logger.ZapLogger) *LedgerHandler {
	return &LedgerHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *LedgerHandler) Register(r chi.Router) {
	r.Get("/variants/{variantID}/stock", h.GetVariantStock)
	r.Post("/variants/{variantID}/adjustments", h.AdjustVariantStock)
	r.Get("/kegs/{kegID}", h.GetKeg)
	r.Post("/kegs/{kegID}/adjustments", h.AdjustKegVolume)
	r.Get("/inventory/movements", h.ListMovements)
}

type VariantStockResponse struct {
	VariantID           string              `json:"variant_id"`
	StockQuantity       int64               `json:"stock_quantity"`
	KegID               *string             `json:"keg_id"`
	ServingVolumeLiters decimal.NullDecimal `json:"serving_volume_liters"`
}

type AdjustStockRequest struct {
	QuantityChange int64  `json:"quantity_change"`
	Reason         string `json:"reason"`
	ReferenceID    string `json:"reference_id"`
	ReferenceType  string `json:"reference_type"`
}

type AdjustKegRequest struct {
	LitersChange  decimal.Decimal `json:"liters_change"`
	Reason        string          `json:"reason"`
	ReferenceID   string          `json:"reference_id"`
	ReferenceType string          `json:"reference_type"`
}

func (h *LedgerHandler) GetVariantStock(w http.ResponseWriter, r *http.Request) {
	v, err := h.uc.GetVariantStock(r.Context(), chi.URLParam(r, "variantID"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, VariantStockResponse{
		VariantID:           v.ID,
		StockQuantity:       v.StockQuantity,
		KegID:               v.KegID,
		ServingVolumeLiters: v.ServingVolumeLiters,
	})
}

func (h *LedgerHandler) AdjustVariantStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	movement, err := h.uc.AdjustVariantStock(r.Context(), &dto.AdjustStockInput{
		VariantID:      chi.URLParam(r, "variantID"),
		QuantityChange: req.QuantityChange,
		Reason:         req.Reason,
		ReferenceID:    req.ReferenceID,
		ReferenceType:  req.ReferenceType,
		UserID:         auth.GetUserID(r.Context()),
	})
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, movement)
}

func (h *LedgerHandler) GetKeg(w http.ResponseWriter, r *http.Request) {
	k, err := h.uc.GetKeg(r.Context(), chi.URLParam(r, "kegID"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, k)
}

func (h *LedgerHandler) AdjustKegVolume(w http.ResponseWriter, r *http.Request) {
	var req AdjustKegRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	movement, err := h.uc.AdjustKegVolume(r.Context(), &dto.AdjustKegInput{
		KegID:         chi.URLParam(r, "kegID"),
		LitersChange:  req.LitersChange,
		Reason:        req.Reason,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		UserID:        auth.GetUserID(r.Context()),
	})
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, movement)
}

func (h *LedgerHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
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

	q := r.URL.Query()
	filters := &dto.MovementFilters{
		Ledger:        model.Ledger(q.Get("ledger")),
		SubjectID:     q.Get("subject_id"),
		ReferenceType: q.Get("reference_type"),
		ReferenceID:   q.Get("reference_id"),
		Page:          page,
		PageSize:      pageSize,
	}

	mvs, count, err := h.uc.ListMovements(r.Context(), filters)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.ListResponse[model.InventoryMovement]{Items: mvs, Total: count})
}
