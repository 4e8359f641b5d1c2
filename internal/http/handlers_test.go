package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grocyhq/grocy-pos/internal/config"
	"github.com/grocyhq/grocy-pos/internal/model"
	"github.com/grocyhq/grocy-pos/internal/service"
	"github.com/grocyhq/grocy-pos/internal/storage/csvfile"
	"github.com/grocyhq/grocy-pos/pkg/validator"
)

type testServer struct {
	handler http.Handler
	store   *csvfile.InventoryStore
	ledger  *csvfile.SaleLedger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)
	store := csvfile.NewInventoryStore(filepath.Join(dir, "inventory.csv"), logger)
	ledger := csvfile.NewSaleLedger(filepath.Join(dir, "sales.csv"), logger)

	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	inventorySvc := service.NewInventoryService(logger, store, ledger)
	saleProcessor := service.NewSaleProcessor(logger, store, ledger)

	svc := New(config.HTTP{}, logger, v, inventorySvc, saleProcessor)

	r := chi.NewRouter()
	svc.RegisterMiddlewares(r)
	svc.RegisterHandlers(r)

	return &testServer{handler: r, store: store, ledger: ledger}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	ts.handler.ServeHTTP(resp, req)
	return resp
}

func decodeBody[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v))
	return v
}

func TestGetInventoryEmpty(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/inventory", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, "[]", resp.Body.String())
}

func TestAddProductThenList(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/add-product", map[string]any{
		"name": "Milk", "category": "Dairy", "price": 2.5, "quantity": 10,
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	created := decodeBody[model.Product](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Milk", created.Name)

	resp = ts.do(t, http.MethodGet, "/inventory", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	products := decodeBody[[]model.Product](t, resp)
	require.Len(t, products, 1)
	assert.Equal(t, created.ID, products[0].ID)
	assert.Equal(t, 10, products[0].Quantity)
}

func TestAddProductMissingRequiredFields(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/inventory", map[string]any{
		"category": "Dairy", "price": 2.5,
	})

	require.Equal(t, http.StatusBadRequest, resp.Code)
	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "validationError", body["code"])
}

func TestUpdateProduct(t *testing.T) {
	ts := newTestServer(t)

	created := decodeBody[model.Product](t, ts.do(t, http.MethodPost, "/inventory", map[string]any{
		"name": "Milk", "category": "Dairy", "price": 2.5, "quantity": 10,
	}))

	resp := ts.do(t, http.MethodPut, "/inventory/"+created.ID, map[string]any{
		"price": 2.75,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	updated := decodeBody[model.Product](t, resp)
	assert.InDelta(t, 2.75, updated.Price, 1e-9)
	assert.Equal(t, "Milk", updated.Name)
}

func TestUpdateUnknownProduct(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPut, "/inventory/nope", map[string]any{"price": 1.0})

	require.Equal(t, http.StatusNotFound, resp.Code)
	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "PRODUCT_NOT_FOUND", body["code"])
}

func TestUpdateWithSalesData(t *testing.T) {
	ts := newTestServer(t)

	created := decodeBody[model.Product](t, ts.do(t, http.MethodPost, "/inventory", map[string]any{
		"name": "Milk", "category": "Dairy", "price": 2.5, "quantity": 10,
	}))

	resp := ts.do(t, http.MethodPut, "/inventory/"+created.ID, map[string]any{
		"quantity":  7,
		"salesData": map[string]any{"quantitySold": 3},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	records, err := ts.ledger.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, created.ID, records[0].ProductID)
	assert.Equal(t, 3, records[0].QuantitySold)
}

func TestProcessSale(t *testing.T) {
	ts := newTestServer(t)

	created := decodeBody[model.Product](t, ts.do(t, http.MethodPost, "/inventory", map[string]any{
		"name": "Milk", "category": "Dairy", "price": 2.5, "quantity": 10,
	}))

	resp := ts.do(t, http.MethodPost, "/process-sale", map[string]any{
		"items": []map[string]any{{
			"id": created.ID, "name": "Milk", "category": "Dairy",
			"price": 2.5, "quantity": 3,
		}},
		"total":    7.5,
		"saleDate": "2025-03-14T10:00:00Z",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	result := decodeBody[service.ProcessSaleResult](t, resp)
	assert.NotEmpty(t, result.SaleID)
	assert.InDelta(t, 7.5, result.Total, 1e-9)

	products, err := ts.store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 7, products[0].Quantity)

	records, err := ts.ledger.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.SaleID, records[0].SaleID)
}

func TestProcessSaleEmptyItems(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/process-sale", map[string]any{
		"items": []map[string]any{},
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSearchProduct(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/inventory", map[string]any{
		"name": "Milk", "category": "Dairy", "price": 2.5, "quantity": 10,
		"barcode": "4006381333931",
	})

	resp := ts.do(t, http.MethodPost, "/search-product", map[string]any{
		"barcode": "4006381333931",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	found := decodeBody[searchProductResponse](t, resp)
	require.NotNil(t, found.Product)
	assert.Equal(t, "Milk", found.Product.Name)

	resp = ts.do(t, http.MethodPost, "/search-product", map[string]any{
		"searchTerm": "cheese",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	missing := decodeBody[searchProductResponse](t, resp)
	assert.Nil(t, missing.Product)

	resp = ts.do(t, http.MethodPost, "/search-product", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSaveInventoryRaw(t *testing.T) {
	ts := newTestServer(t)

	raw := "id,barcode,name,category,price,quantity,description,dateAdded\n" +
		"p1,,Bread,Bakery,1.2,7,,2025-03-14T09:30:00Z\n"

	req := httptest.NewRequest(http.MethodPost, "/save-inventory", strings.NewReader(raw))
	req.Header.Set("Content-Type", "text/csv")
	resp := httptest.NewRecorder()
	ts.handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	products, err := ts.store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Bread", products[0].Name)
}

func TestImportInventoryMultipart(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "inventory.csv")
	require.NoError(t, err)
	fmt.Fprint(fw, "name,category,price,quantity\n"+
		"Milk,Dairy,2.5,10\n"+
		",Dairy,1.0,5\n"+
		"Bread,Bakery,1.2,7\n")
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/inventory/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp := httptest.NewRecorder()
	ts.handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	result := decodeBody[service.ImportResult](t, resp)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
}
