package catalog_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shelfpos/internal/catalog"
	"shelfpos/internal/store/storetest"
)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := catalog.NewService(storetest.Open(t), time.UTC, zap.NewNop())

	r := chi.NewRouter()
	catalog.NewHandler(svc, zap.NewNop()).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.Bytes()
}

func TestItemEndpoints(t *testing.T) {
	srv := newCatalogServer(t)

	status, raw := do(t, http.MethodPost, srv.URL+"/items", `{
		"name": "Amoxicillin",
		"category": "Antibiotic",
		"batch_number": "AMX-01",
		"expiry_date": "2020-01-01",
		"unit_cost": "3.10",
		"unit_price": "4.50",
		"on_hand": 2,
		"min_stock": 5
	}`)
	require.Equal(t, http.StatusCreated, status, string(raw))

	var item catalog.Item
	require.NoError(t, json.Unmarshal(raw, &item))
	assert.Equal(t, "4.5", item.UnitPrice.String())

	status, _ = do(t, http.MethodPost, srv.URL+"/items", `{"name": "Amoxicillin", "batch_number": "AMX-01", "unit_price": "1"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = do(t, http.MethodPost, srv.URL+"/items", `{"name": "", "unit_price": "1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = do(t, http.MethodPost, srv.URL+"/items", `{"name": "X", "colour": "red"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, raw = do(t, http.MethodGet, srv.URL+"/items/"+item.ID.String(), "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `"name":"Amoxicillin"`)

	for _, path := range []string{"/items/low-stock", "/items/expired", "/search/items?q=antibio"} {
		status, raw = do(t, http.MethodGet, srv.URL+path, "")
		require.Equal(t, http.StatusOK, status, path)
		var got []catalog.Item
		require.NoError(t, json.Unmarshal(raw, &got))
		require.Len(t, got, 1, path)
		assert.Equal(t, item.ID, got[0].ID, path)
	}

	status, raw = do(t, http.MethodPut, srv.URL+"/items/"+item.ID.String(), `{"on_hand": 50, "expiry_date": "2099-12-31"}`)
	require.Equal(t, http.StatusOK, status, string(raw))

	for _, path := range []string{"/items/low-stock", "/items/expired"} {
		status, raw = do(t, http.MethodGet, srv.URL+path, "")
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `[]`, string(raw), path)
	}

	status, _ = do(t, http.MethodPut, srv.URL+"/items/"+item.ID.String(), `{"on_hand": -3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = do(t, http.MethodGet, srv.URL+"/search/items", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, http.MethodDelete, srv.URL+"/items/"+item.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = do(t, http.MethodGet, srv.URL+"/items/"+item.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, http.MethodGet, srv.URL+"/items/nope", "")
	assert.Equal(t, http.StatusBadRequest, status)
}
