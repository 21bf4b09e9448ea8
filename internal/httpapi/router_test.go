package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"shelfpos/internal/catalog"
	"shelfpos/internal/dashboard"
	"shelfpos/internal/directory"
	"shelfpos/internal/httpapi"
	"shelfpos/internal/sales"
	"shelfpos/internal/store/storetest"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	db := storetest.Open(t)

	directorySvc := directory.NewService(db, 0, 0, logger)
	salesSvc := sales.NewService(db, logger, sales.WithCustomers(directorySvc))

	srv := httptest.NewServer(httpapi.NewRouter(logger, db,
		catalog.NewHandler(catalog.NewService(db, time.UTC, logger), logger),
		directory.NewHandler(directorySvc, logger),
		sales.NewHandler(salesSvc, logger),
		dashboard.NewHandler(dashboard.NewAggregator(db, time.UTC, logger), logger),
	))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestCheckoutThroughAPI(t *testing.T) {
	srv := newAPI(t)

	var item catalog.Item
	status := postJSON(t, srv.URL+"/api/items",
		`{"name": "Cough Syrup", "unit_price": "6.40", "on_hand": 3, "min_stock": 1, "expiry_date": "2030-01-01"}`, &item)
	require.Equal(t, http.StatusCreated, status)

	var customer directory.Customer
	status = postJSON(t, srv.URL+"/api/customers", `{"name": "Leila", "phone": "0555"}`, &customer)
	require.Equal(t, http.StatusCreated, status)

	var sale sales.Sale
	status = postJSON(t, srv.URL+"/api/sales", fmt.Sprintf(`{
		"items": [{"item_id": %q, "quantity": 2, "unit_price": "6.40"}],
		"customer_id": %q,
		"discount_percent": "0",
		"tax_percent": "0"
	}`, item.ID, customer.ID), &sale)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Leila", sale.CustomerName)
	assert.Equal(t, "12.80", sale.Pricing.GrandTotal.StringFixed(2))

	resp, err := http.Get(srv.URL + "/api/items/" + item.ID.String())
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&item))
	resp.Body.Close()
	assert.Equal(t, 1, item.OnHand)

	resp, err = http.Get(srv.URL + "/api/dashboard/stats")
	require.NoError(t, err)
	var snap dashboard.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	resp.Body.Close()
	assert.Equal(t, 1, snap.TotalItems)
	assert.Equal(t, 1, snap.LowStockCount)
	assert.Equal(t, 1, snap.TodaySalesCount)
	assert.Equal(t, "12.80", snap.TodayRevenue.StringFixed(2))
}

func TestHealthz(t *testing.T) {
	srv := newAPI(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

type panicky struct{}

func (panicky) Routes(r chi.Router) {
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
}

func TestRouterFailures(t *testing.T) {
	h := httpapi.NewRouter(zap.NewNop(), downDB{}, panicky{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
