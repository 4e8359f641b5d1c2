package csvfile

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/grocyhq/grocy-pos/internal/model"
)

// SaleLedger is the append-only sales history file. Records are never
// updated or deleted once written; the only operations are Append and a full
// read used by reporting and tests.
type SaleLedger struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

func NewSaleLedger(path string, logger *slog.Logger) *SaleLedger {
	return &SaleLedger{
		path:   path,
		logger: logger.With(slog.String("store", "sales")),
	}
}

// Path returns the backing file location.
func (l *SaleLedger) Path() string { return l.path }

// Append adds records to the end of the ledger. The file is created with a
// header when absent; an existing file is appended to without re-emitting
// the header.
func (l *SaleLedger) Append(ctx context.Context, records []model.SaleRecord) error {
	if len(records) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger file: %w", err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(SalesHeader); err != nil {
			return fmt.Errorf("write ledger header: %w", err)
		}
	}

	record := make([]string, len(SalesHeader))
	for _, rec := range records {
		row := RowFromSale(rec)
		for i, h := range SalesHeader {
			record[i] = row[strings.ToLower(h)]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write ledger row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}

	return f.Sync()
}

// ReadAll returns every ledger record in file order. A missing file yields
// an empty history.
func (l *SaleLedger) ReadAll(ctx context.Context) ([]model.SaleRecord, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return []model.SaleRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	records := []model.SaleRecord{}
	for row, err := range DecodeRows(bufio.NewReader(f)) {
		if err != nil {
			return nil, fmt.Errorf("decode ledger file: %w", err)
		}
		rec, err := SaleFromRow(row)
		if err != nil {
			l.logger.WarnContext(ctx, "skipping malformed ledger row", slog.Any("error", err))
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}
