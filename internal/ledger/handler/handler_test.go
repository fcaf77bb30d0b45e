package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fekuna/omnipos-order-service/internal/auth"
	"github.com/fekuna/omnipos-order-service/internal/database"
	"github.com/fekuna/omnipos-order-service/internal/database/dbtest"
	"github.com/fekuna/omnipos-order-service/internal/httpx"
	"github.com/fekuna/omnipos-order-service/internal/ledger/handler"
	"github.com/fekuna/omnipos-order-service/internal/ledger/repository"
	"github.com/fekuna/omnipos-order-service/internal/ledger/usecase"
	"github.com/fekuna/omnipos-order-service/internal/logger"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *sqlx.DB) {
	t.Helper()
	db := dbtest.New(t)
	log := logger.NewNop()
	uc := usecase.NewLedgerUseCase(database.NewTxManager(db), repository.NewPGRepository(db, false), log)
	srv := httptest.NewServer(httpx.NewRouter(log, 5*time.Second, handler.NewLedgerHandler(uc, log)))
	t.Cleanup(srv.Close)
	return srv, db
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(auth.HeaderUserID, "staff-9")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestAdjustAndReadVariantStock(t *testing.T) {
	srv, db := newServer(t)
	variantID := dbtest.SeedVariant(t, db, 3, "", "")

	res := do(t, http.MethodPost, srv.URL+"/variants/"+variantID+"/adjustments",
		`{"quantity_change": 12, "reason": "delivery", "reference_type": "restock"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var movement model.InventoryMovement
	require.NoError(t, json.NewDecoder(res.Body).Decode(&movement))
	assert.Equal(t, "15", movement.QuantityAfter.String())
	assert.Equal(t, "staff-9", *movement.CreatedBy)

	res = do(t, http.MethodGet, srv.URL+"/variants/"+variantID+"/stock", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var stock handler.VariantStockResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&stock))
	assert.Equal(t, int64(15), stock.StockQuantity)

	res = do(t, http.MethodGet, srv.URL+"/inventory/movements?subject_id="+variantID, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var list httpx.ListResponse[model.InventoryMovement]
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	assert.Equal(t, 1, list.Total)
}

func TestLedgerErrorMapping(t *testing.T) {
	srv, db := newServer(t)
	variantID := dbtest.SeedVariant(t, db, 1, "", "")
	kegID := dbtest.SeedKeg(t, db, "30", "1")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown variant", http.MethodGet, "/variants/missing/stock", "", http.StatusNotFound, "NOT_FOUND"},
		{"unknown keg", http.MethodGet, "/kegs/missing", "", http.StatusNotFound, "NOT_FOUND"},
		{"zero change", http.MethodPost, "/variants/" + variantID + "/adjustments", `{"quantity_change": 0}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"bad json", http.MethodPost, "/variants/" + variantID + "/adjustments", `{"quantity_change": "x"}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"unknown field", http.MethodPost, "/kegs/" + kegID + "/adjustments", `{"liters": "2"}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"overdraw stock", http.MethodPost, "/variants/" + variantID + "/adjustments", `{"quantity_change": -2}`, http.StatusConflict, "FAILED_PRECONDITION"},
		{"overdraw keg", http.MethodPost, "/kegs/" + kegID + "/adjustments", `{"liters_change": "-1.5"}`, http.StatusConflict, "FAILED_PRECONDITION"},
		{"bad page", http.MethodGet, "/inventory/movements?page=two", "", http.StatusBadRequest, "INVALID_ARGUMENT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := do(t, tt.method, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, res.StatusCode)

			var body httpx.ErrorResponse
			require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Error)
		})
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newServer(t)
	res := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
