package handler

import (
	"net/http"
	"time"

	"github.com/fekuna/omnipos-order-service/internal/httpx"
	"github.com/fekuna/omnipos-order-service/internal/logger"
	"github.com/fekuna/omnipos-order-service/internal/promotion"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type PromotionHandler struct {
	uc     promotion.UseCase
	logger logger.ZapLogger
	now    func() time.Time
}

func NewPromotionHandler(uc promotion.UseCase, log logger.ZapLogger) *PromotionHandler {
	return &PromotionHandler{
		uc:     uc,
		logger: log,
		now:    time.Now,
	}
}

func (h *PromotionHandler) Register(r chi.Router) {
	r.Get("/promotions/valid", h.GetValidPromotions)
	r.Post("/promotions/{promotionID}/usage", h.RecordUsage)
}

type PromotionResponse struct {
	ID                 string               `json:"id"`
	Name               string               `json:"name"`
	Type               promotion.Type       `json:"type"`
	Value              decimal.Decimal      `json:"value"`
	MinAmount          *decimal.Decimal     `json:"min_amount"`
	MaxDiscount        *decimal.Decimal     `json:"max_discount"`
	ValidFrom          promotion.Date       `json:"valid_from"`
	ValidUntil         promotion.Date       `json:"valid_until"`
	StartTime          *promotion.ClockTime `json:"start_time"`
	EndTime            *promotion.ClockTime `json:"end_time"`
	DaysOfWeek         []string             `json:"days_of_week"`
	MaxUses            *int64               `json:"max_uses"`
	CurrentUses        int64                `json:"current_uses"`
	CalculatedDiscount decimal.Decimal      `json:"calculated_discount"`
}

type ValidPromotionsResponse struct {
	Items        []PromotionResponse `json:"items"`
	BestDiscount decimal.Decimal     `json:"best_discount"`
}

func (h *PromotionHandler) GetValidPromotions(w http.ResponseWriter, r *http.Request) {
	total, err := httpx.QueryDecimal(r, "total")
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	valid, err := h.uc.GetValidPromotions(r.Context(), total, h.now())
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	res := ValidPromotionsResponse{Items: make([]PromotionResponse, len(valid)), BestDiscount: decimal.Zero}
	for i := range valid {
		res.Items[i] = mapApplicable(&valid[i])
	}
	if best := promotion.Best(valid); best != nil {
		res.BestDiscount = best.Discount
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *PromotionHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.RecordUsage(r.Context(), chi.URLParam(r, "promotionID")); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func mapApplicable(a *promotion.Applicable) PromotionResponse {
	res := PromotionResponse{
		ID:                 a.Rule.ID,
		Name:               a.Rule.Name,
		Type:               a.Rule.Type,
		Value:              a.Rule.Value,
		MinAmount:          a.Rule.MinAmount,
		MaxDiscount:        a.Rule.MaxDiscount,
		ValidFrom:          a.Rule.ValidFrom,
		ValidUntil:         a.Rule.ValidUntil,
		StartTime:          a.Rule.StartTime,
		EndTime:            a.Rule.EndTime,
		MaxUses:            a.Rule.MaxUses,
		CurrentUses:        a.Rule.CurrentUses,
		CalculatedDiscount: a.Discount,
	}
	if a.Rule.Days != nil {
		res.DaysOfWeek = a.Rule.Days.Names()
	}
	return res
}
