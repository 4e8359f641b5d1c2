package csvfile

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/grocyhq/grocy-pos/internal/model"
)

// InventoryStore is the single source of truth for current stock, backed by
// one CSV file.
//
// Mutations run strictly one at a time under the store's mutex; reads do not
// take the mutex and observe whichever file version the last completed write
// produced. Concurrent reads of the same generation are coalesced into a
// single file scan.
type InventoryStore struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	loads singleflight.Group
}

func NewInventoryStore(path string, logger *slog.Logger) *InventoryStore {
	return &InventoryStore{
		path:   path,
		logger: logger.With(slog.String("store", "inventory")),
	}
}

// Path returns the backing file location.
func (s *InventoryStore) Path() string { return s.path }

// Load reads the full product list. A missing file is not an error: the
// store simply holds no products yet.
func (s *InventoryStore) Load(ctx context.Context) ([]model.Product, error) {
	v, err, _ := s.loads.Do("load", func() (any, error) {
		return s.readAll(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Product), nil
}

func (s *InventoryStore) readAll(ctx context.Context) ([]model.Product, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return []model.Product{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open inventory file: %w", err)
	}
	defer f.Close()

	products := []model.Product{}
	for row, err := range DecodeRows(bufio.NewReader(f)) {
		if err != nil {
			return nil, fmt.Errorf("decode inventory file: %w", err)
		}
		p, err := ProductFromRow(row)
		if err != nil {
			// Malformed rows are dropped, not fatal: a single bad line must
			// not take the whole catalog offline.
			s.logger.WarnContext(ctx, "skipping malformed inventory row",
				slog.String("id", row["id"]), slog.Any("error", err))
			continue
		}
		products = append(products, p)
	}

	return products, nil
}

// ReplaceAll atomically overwrites the backing file with the given set.
func (s *InventoryStore) ReplaceAll(ctx context.Context, products []model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAll(products)
}

// Mutate runs fn against the current product list and persists its result,
// all under the store mutex. This is the only safe way to do
// read-modify-write against the file.
func (s *InventoryStore) Mutate(ctx context.Context, fn func([]model.Product) ([]model.Product, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.readAll(ctx)
	if err != nil {
		return err
	}

	updated, err := fn(products)
	if err != nil {
		return err
	}

	return s.writeAll(updated)
}

// writeAll writes to a temp file in the same directory and renames it over
// the target, so a crash mid-write never truncates the inventory.
// Callers hold s.mu.
func (s *InventoryStore) writeAll(products []model.Product) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	rows := make([]Row, 0, len(products))
	for _, p := range products {
		rows = append(rows, RowFromProduct(p))
	}

	w := bufio.NewWriter(tmp)
	if err := EncodeRows(w, InventoryHeader, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("encode inventory: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush inventory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// WriteRaw overwrites the backing file with verbatim CSV text, using the
// same temp-and-rename discipline as writeAll. Callers are expected to have
// checked the payload decodes against the inventory header.
func (s *InventoryStore) WriteRaw(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write raw inventory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// Upsert replaces the product whose id matches, or appends it.
// Upserting an unchanged product leaves the decoded file content unchanged.
func (s *InventoryStore) Upsert(ctx context.Context, product model.Product) error {
	return s.Mutate(ctx, func(products []model.Product) ([]model.Product, error) {
		for i, p := range products {
			if p.ID == product.ID {
				products[i] = product
				return products, nil
			}
		}
		return append(products, product), nil
	})
}

// FindByBarcode returns the first product with an exact barcode match.
func (s *InventoryStore) FindByBarcode(ctx context.Context, code string) (model.Product, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.Product{}, false, nil
	}

	products, err := s.Load(ctx)
	if err != nil {
		return model.Product{}, false, err
	}
	for _, p := range products {
		if p.Barcode != "" && p.Barcode == code {
			return p, true, nil
		}
	}
	return model.Product{}, false, nil
}

// Search returns all products whose name, category or barcode contains term,
// case-insensitively.
func (s *InventoryStore) Search(ctx context.Context, term string) ([]model.Product, error) {
	products, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	matches := []model.Product{}
	for _, p := range products {
		if p.MatchesTerm(term) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}
