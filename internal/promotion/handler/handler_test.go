package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fekuna/omnipos-order-service/internal/database"
	"github.com/fekuna/omnipos-order-service/internal/database/dbtest"
	"github.com/fekuna/omnipos-order-service/internal/httpx"
	"github.com/fekuna/omnipos-order-service/internal/logger"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/fekuna/omnipos-order-service/internal/promotion/repository"
	"github.com/fekuna/omnipos-order-service/internal/promotion/usecase"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *sqlx.DB) {
	t.Helper()
	db := dbtest.New(t)
	log := logger.NewNop()
	uc := usecase.NewPromotionUseCase(database.NewTxManager(db), repository.NewPGRepository(db), nil,
		usecase.Options{Location: time.UTC}, log)
	h := NewPromotionHandler(uc, log)
	// Friday 16 October 2026, 20:30.
	h.now = func() time.Time { return time.Date(2026, time.October, 16, 20, 30, 0, 0, time.UTC) }
	srv := httptest.NewServer(httpx.NewRouter(log, 5*time.Second, h))
	t.Cleanup(srv.Close)
	return srv, db
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestValidPromotions(t *testing.T) {
	srv, db := newServer(t)
	start, end, days := "19:00", "21:00", `["fri","sat"]`
	maxDiscount := decimal.NewNullDecimal(decimal.NewFromInt(3))
	dbtest.SeedPromotion(t, db, model.Promotion{BaseModel: model.BaseModel{ID: "happy"}, Name: "Happy hour", Type: "percentage",
		Value: decimal.NewFromInt(25), MaxDiscount: maxDiscount, StartTime: &start, EndTime: &end, DaysOfWeek: &days, IsActive: true})
	dbtest.SeedPromotion(t, db, model.Promotion{BaseModel: model.BaseModel{ID: "one"}, Name: "One off", Type: "fixed_amount",
		Value: decimal.NewFromInt(1), IsActive: true})

	res := get(t, srv.URL+"/promotions/valid?total=20")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		Items []struct {
			ID                 string          `json:"id"`
			StartTime          string          `json:"start_time"`
			ValidFrom          string          `json:"valid_from"`
			DaysOfWeek         []string        `json:"days_of_week"`
			CalculatedDiscount decimal.Decimal `json:"calculated_discount"`
		} `json:"items"`
		BestDiscount decimal.Decimal `json:"best_discount"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Len(t, body.Items, 2)
	assert.Equal(t, "happy", body.Items[0].ID)
	assert.Equal(t, "3", body.Items[0].CalculatedDiscount.String())
	assert.Equal(t, "19:00:00", body.Items[0].StartTime)
	assert.Equal(t, "2026-01-01", body.Items[0].ValidFrom)
	assert.Equal(t, []string{"friday", "saturday"}, body.Items[0].DaysOfWeek)
	assert.Equal(t, "one", body.Items[1].ID)
	assert.Equal(t, "3", body.BestDiscount.String())
}

func TestValidPromotionsRejectsBadTotal(t *testing.T) {
	srv, _ := newServer(t)

	for _, q := range []string{"", "?total=abc", "?total=-1"} {
		res := get(t, srv.URL+"/promotions/valid"+q)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, q)
	}
}

func TestRecordUsage(t *testing.T) {
	srv, db := newServer(t)
	maxUses := int64(1)
	id := dbtest.SeedPromotion(t, db, model.Promotion{Name: "Once", Type: "fixed_amount", Value: decimal.NewFromInt(1),
		MaxUses: &maxUses, IsActive: true})

	post := func(id string) int {
		res, err := http.Post(srv.URL+"/promotions/"+id+"/usage", "application/json", nil)
		require.NoError(t, err)
		res.Body.Close()
		return res.StatusCode
	}

	assert.Equal(t, http.StatusNoContent, post(id))
	assert.Equal(t, http.StatusConflict, post(id))
	assert.Equal(t, http.StatusNotFound, post("missing"))
}
