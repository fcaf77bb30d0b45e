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
	ledgerrepo "github.com/fekuna/omnipos-order-service/internal/ledger/repository"
	"github.com/fekuna/omnipos-order-service/internal/logger"
	"github.com/fekuna/omnipos-order-service/internal/model"
	"github.com/fekuna/omnipos-order-service/internal/orderitem/handler"
	"github.com/fekuna/omnipos-order-service/internal/orderitem/repository"
	"github.com/fekuna/omnipos-order-service/internal/orderitem/usecase"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *sqlx.DB) {
	t.Helper()
	db := dbtest.New(t)
	log := logger.NewNop()
	uc := usecase.NewOrderItemUseCase(
		database.NewTxManager(db),
		repository.NewPGRepository(db),
		ledgerrepo.NewPGRepository(db, false),
		nil,
		usecase.Options{DefaultServingLiters: decimal.RequireFromString("0.5")},
		log,
	)
	srv := httptest.NewServer(httpx.NewRouter(log, 5*time.Second, handler.NewOrderItemHandler(uc, log)))
	t.Cleanup(srv.Close)
	return srv, db
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(auth.HeaderUserID, "bartender-2")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestItemLifecycle(t *testing.T) {
	srv, db := newServer(t)
	orderID := dbtest.SeedOrder(t, db, string(model.OrderStatusPending))
	kegID := dbtest.SeedKeg(t, db, "20", "20")
	variantID := dbtest.SeedVariant(t, db, 20, kegID, "0.5")

	res := do(t, http.MethodPost, srv.URL+"/orders/"+orderID+"/items",
		`{"variant_id": "`+variantID+`", "quantity": 3, "price_at_sale": "4.50", "note": "no foam"}`)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var item model.OrderItem
	require.NoError(t, json.NewDecoder(res.Body).Decode(&item))
	assert.Equal(t, "13.5", item.Subtotal.String())
	assert.Equal(t, "no foam", *item.Note)
	assert.Equal(t, int64(17), dbtest.VariantStock(t, db, variantID))
	assert.Equal(t, "18.5", dbtest.KegRemaining(t, db, kegID).String())

	res = do(t, http.MethodPut, srv.URL+"/order-items/"+item.ID, `{"quantity": 5, "price_at_sale": "4.50"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, int64(15), dbtest.VariantStock(t, db, variantID))

	res = do(t, http.MethodGet, srv.URL+"/orders/"+orderID+"/items", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var list httpx.ListResponse[model.OrderItem]
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, int64(5), list.Items[0].Quantity)

	res = do(t, http.MethodGet, srv.URL+"/order-items/"+item.ID, "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = do(t, http.MethodDelete, srv.URL+"/order-items/"+item.ID, "")
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, int64(20), dbtest.VariantStock(t, db, variantID))
	assert.Equal(t, "20", dbtest.KegRemaining(t, db, kegID).String())

	var createdBy string
	require.NoError(t, db.Get(&createdBy, `SELECT created_by FROM inventory_movements WHERE reference_id = ? LIMIT 1`, item.ID))
	assert.Equal(t, "bartender-2", createdBy)
}

func TestItemErrorMapping(t *testing.T) {
	srv, db := newServer(t)
	orderID := dbtest.SeedOrder(t, db, string(model.OrderStatusPending))
	paidID := dbtest.SeedOrder(t, db, string(model.OrderStatusPaid))
	variantID := dbtest.SeedVariant(t, db, 1, "", "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown field", http.MethodPost, "/orders/" + orderID + "/items", `{"variant_id": "x", "qty": 1}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"zero quantity", http.MethodPost, "/orders/" + orderID + "/items", `{"variant_id": "` + variantID + `", "quantity": 0, "price_at_sale": "1"}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"unknown order", http.MethodPost, "/orders/nope/items", `{"variant_id": "` + variantID + `", "quantity": 1, "price_at_sale": "1"}`, http.StatusNotFound, "NOT_FOUND"},
		{"unknown variant", http.MethodPost, "/orders/" + orderID + "/items", `{"variant_id": "nope", "quantity": 1, "price_at_sale": "1"}`, http.StatusNotFound, "NOT_FOUND"},
		{"paid order", http.MethodPost, "/orders/" + paidID + "/items", `{"variant_id": "` + variantID + `", "quantity": 1, "price_at_sale": "1"}`, http.StatusConflict, "FAILED_PRECONDITION"},
		{"insufficient stock", http.MethodPost, "/orders/" + orderID + "/items", `{"variant_id": "` + variantID + `", "quantity": 2, "price_at_sale": "1"}`, http.StatusConflict, "FAILED_PRECONDITION"},
		{"unknown item", http.MethodGet, "/order-items/nope", "", http.StatusNotFound, "NOT_FOUND"},
		{"delete unknown item", http.MethodDelete, "/order-items/nope", "", http.StatusNotFound, "NOT_FOUND"},
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

	assert.Equal(t, int64(1), dbtest.VariantStock(t, db, variantID))
	assert.Equal(t, 0, dbtest.CountRows(t, db, "order_items"))
}
