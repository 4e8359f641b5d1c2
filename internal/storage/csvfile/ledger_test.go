package csvfile

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grocyhq/grocy-pos/internal/model"
)

func newTestLedger(t *testing.T) *SaleLedger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	return NewSaleLedger(path, slog.New(slog.DiscardHandler))
}

func saleLine(saleID, productID string, qty int, total float64) model.SaleRecord {
	return model.SaleRecord{
		SaleID:       saleID,
		ProductID:    productID,
		QuantitySold: qty,
		SaleDate:     time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		TotalPrice:   total,
		Name:         "Milk",
		Category:     "Dairy",
		UnitPrice:    2.5,
	}
}

func TestAppendCreatesFileWithHeader(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, []model.SaleRecord{saleLine("s1", "p1", 3, 7.5)}))

	raw, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(SalesHeader, ","), lines[0])
}

func TestAppendDoesNotRepeatHeader(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, []model.SaleRecord{saleLine("s1", "p1", 3, 7.5)}))
	require.NoError(t, l.Append(ctx, []model.SaleRecord{
		saleLine("s2", "p1", 1, 2.5),
		saleLine("s2", "p2", 2, 9.98),
	}))

	raw, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "saleId"))

	records, err := l.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "s1", records[0].SaleID)
	assert.Equal(t, "s2", records[1].SaleID)
	assert.Equal(t, "s2", records[2].SaleID)
}

func TestAppendNothingIsNoop(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, nil))
	_, err := os.Stat(l.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestReadAllMissingFile(t *testing.T) {
	l := newTestLedger(t)

	records, err := l.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}
