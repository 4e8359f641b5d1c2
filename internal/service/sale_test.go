package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grocyhq/grocy-pos/internal/apperr"
	"github.com/grocyhq/grocy-pos/internal/model"
	"github.com/grocyhq/grocy-pos/internal/storage/csvfile"
	"github.com/grocyhq/grocy-pos/pkg/zerror"
)

func newStores(t *testing.T) (*csvfile.InventoryStore, *csvfile.SaleLedger) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)
	return csvfile.NewInventoryStore(filepath.Join(dir, "inventory.csv"), logger),
		csvfile.NewSaleLedger(filepath.Join(dir, "sales.csv"), logger)
}

func seedProduct(t *testing.T, store *csvfile.InventoryStore, p model.Product) {
	t.Helper()
	require.NoError(t, store.Upsert(context.Background(), p))
}

func milk(quantity int) model.Product {
	return model.Product{
		ID:        "p1",
		Barcode:   "4006381333931",
		Name:      "Milk",
		Category:  "Dairy",
		Price:     2.5,
		Quantity:  quantity,
		DateAdded: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestProcessSaleDecrementsAndRecords(t *testing.T) {
	store, ledger := newStores(t)
	ctx := context.Background()
	seedProduct(t, store, milk(10))

	proc := NewSaleProcessor(slog.New(slog.DiscardHandler), store, ledger)

	result, err := proc.ProcessSale(ctx, ProcessSaleParams{
		Items: []SaleItem{{ProductID: "p1", Quantity: 3, UnitPrice: 2.5}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.SaleID)
	assert.InDelta(t, 7.5, result.Total, 1e-9)
	assert.Equal(t, 3, result.Applied["p1"])

	products, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 7, products[0].Quantity)

	records, err := ledger.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.SaleID, records[0].SaleID)
	assert.Equal(t, 3, records[0].QuantitySold)
	assert.InDelta(t, 7.5, records[0].TotalPrice, 1e-9)
	assert.Equal(t, "Milk", records[0].Name)
}

func TestProcessSaleClampsAtZero(t *testing.T) {
	store, ledger := newStores(t)
	ctx := context.Background()
	seedProduct(t, store, milk(10))

	proc := NewSaleProcessor(slog.New(slog.DiscardHandler), store, ledger)

	result, err := proc.ProcessSale(ctx, ProcessSaleParams{
		Items: []SaleItem{{ProductID: "p1", Quantity: 50, UnitPrice: 2.5}},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, result.Applied["p1"])

	products, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 0, products[0].Quantity)
	assert.GreaterOrEqual(t, products[0].Quantity, 0)
}

func TestProcessSaleSharedSaleID(t *testing.T) {
	store, ledger := newStores(t)
	ctx := context.Background()
	seedProduct(t, store, milk(10))
	seedProduct(t, store, model.Product{
		ID: "p2", Name: "Bread", Category: "Bakery", Price: 1.2, Quantity: 5,
		DateAdded: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	})

	proc := NewSaleProcessor(slog.New(slog.DiscardHandler), store, ledger)

	result, err := proc.ProcessSale(ctx, ProcessSaleParams{
		Items: []SaleItem{
			{ProductID: "p1", Quantity: 2, UnitPrice: 2.5},
			{ProductID: "p2", Quantity: 1, UnitPrice: 1.2},
		},
	})
	require.NoError(t, err)

	records, err := ledger.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, result.SaleID, records[0].SaleID)
	assert.Equal(t, result.SaleID, records[1].SaleID)
}

func TestProcessSaleUnknownProductStillLedgered(t *testing.T) {
	store, ledger := newStores(t)
	ctx := context.Background()
	seedProduct(t, store, milk(10))

	proc := NewSaleProcessor(slog.New(slog.DiscardHandler), store, ledger)

	result, err := proc.ProcessSale(ctx, ProcessSaleParams{
		Items: []SaleItem{{ProductID: "ghost", Name: "Gone", Quantity: 1, UnitPrice: 9.99}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Applied["ghost"])

	records, err := ledger.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ghost", records[0].ProductID)
}

func TestProcessSaleEmptyBasket(t *testing.T) {
	store, ledger := newStores(t)
	proc := NewSaleProcessor(slog.New(slog.DiscardHandler), store, ledger)

	_, err := proc.ProcessSale(context.Background(), ProcessSaleParams{})

	var zErr zerror.ZError
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, apperr.EmptySaleCode, zErr.Code())
}

type failingLedger struct{}

func (failingLedger) Append(context.Context, []model.SaleRecord) error {
	return fmt.Errorf("disk full")
}

func TestProcessSalePartialFailureIsDistinct(t *testing.T) {
	store, _ := newStores(t)
	ctx := context.Background()
	seedProduct(t, store, milk(10))

	proc := NewSaleProcessor(slog.New(slog.DiscardHandler), store, failingLedger{})

	result, err := proc.ProcessSale(ctx, ProcessSaleParams{
		Items: []SaleItem{{ProductID: "p1", Quantity: 3, UnitPrice: 2.5}},
	})

	var zErr zerror.ZError
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, apperr.PartialSaleAppliedCode, zErr.Code())
	assert.ErrorContains(t, err, "disk full")

	// inventory write already happened; the result reports it
	assert.Equal(t, 3, result.Applied["p1"])
	products, err2 := store.Load(ctx)
	require.NoError(t, err2)
	assert.Equal(t, 7, products[0].Quantity)
}
