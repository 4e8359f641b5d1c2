package service

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/grocyhq/grocy-pos/internal/apperr"
	"github.com/grocyhq/grocy-pos/internal/model"
	"github.com/grocyhq/grocy-pos/internal/storage/csvfile"
)

// InventoryStore is the persistence surface the services need. Implemented
// by csvfile.InventoryStore.
type InventoryStore interface {
	Load(ctx context.Context) ([]model.Product, error)
	ReplaceAll(ctx context.Context, products []model.Product) error
	Mutate(ctx context.Context, fn func([]model.Product) ([]model.Product, error)) error
	FindByBarcode(ctx context.Context, code string) (model.Product, bool, error)
	Search(ctx context.Context, term string) ([]model.Product, error)
	WriteRaw(ctx context.Context, data []byte) error
}

// SaleLedger is the append-only sale history surface. Implemented by
// csvfile.SaleLedger.
type SaleLedger interface {
	Append(ctx context.Context, records []model.SaleRecord) error
}

type AddProductParams struct {
	Barcode     string
	Name        string
	Category    string
	Price       float64
	Quantity    int
	Description string
}

// UpdateProductParams carries a partial product: nil fields keep the stored
// value. Sale, when set, also appends one ledger record in the same call.
type UpdateProductParams struct {
	Barcode     *string
	Name        *string
	Category    *string
	Price       *float64
	Quantity    *int
	Description *string

	Sale *SaleData
}

// SaleData is an embedded sale attached to a product update.
type SaleData struct {
	QuantitySold int
	TotalPrice   float64
	SaleDate     time.Time
}

// ImportResult reports the outcome of a tolerant batch import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type InventoryService interface {
	List(ctx context.Context) ([]model.Product, error)
	Add(ctx context.Context, params AddProductParams) (model.Product, error)
	Update(ctx context.Context, id string, params UpdateProductParams) (model.Product, error)
	SearchByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	SearchByTerm(ctx context.Context, term string) (*model.Product, error)
	Import(ctx context.Context, r io.Reader) (ImportResult, error)
	SaveRaw(ctx context.Context, data []byte) error
}

type inventoryService struct {
	logger *slog.Logger
	store  InventoryStore
	ledger SaleLedger
}

func NewInventoryService(logger *slog.Logger, store InventoryStore, ledger SaleLedger) InventoryService {
	return &inventoryService{
		logger: logger.With(slog.String("service", "inventory")),
		store:  store,
		ledger: ledger,
	}
}

func (s *inventoryService) List(ctx context.Context) ([]model.Product, error) {
	products, err := s.store.Load(ctx)
	if err != nil {
		return nil, apperr.StorageErr.WrapParent(err)
	}
	return products, nil
}

func (s *inventoryService) Add(ctx context.Context, params AddProductParams) (model.Product, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return model.Product{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	product := model.Product{
		ID:          id.String(),
		Barcode:     strings.TrimSpace(params.Barcode),
		Name:        strings.TrimSpace(params.Name),
		Category:    strings.TrimSpace(params.Category),
		Price:       params.Price,
		Quantity:    params.Quantity,
		Description: params.Description,
		DateAdded:   time.Now().UTC(),
	}

	if err := s.store.Mutate(ctx, func(products []model.Product) ([]model.Product, error) {
		if product.Barcode != "" {
			for _, p := range products {
				if p.Barcode == product.Barcode {
					return nil, apperr.BarcodeConflictErr
				}
			}
		}
		return append(products, product), nil
	}); err != nil {
		return model.Product{}, storeErr(err)
	}

	s.logger.InfoContext(ctx, "product added",
		slog.String("id", product.ID), slog.String("name", product.Name))

	return product, nil
}

func (s *inventoryService) Update(ctx context.Context, id string, params UpdateProductParams) (model.Product, error) {
	var updated model.Product

	if err := s.store.Mutate(ctx, func(products []model.Product) ([]model.Product, error) {
		idx := -1
		for i, p := range products {
			if p.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, apperr.ProductNotFoundErr
		}

		p := products[idx]
		if params.Barcode != nil {
			p.Barcode = strings.TrimSpace(*params.Barcode)
		}
		if params.Name != nil {
			p.Name = strings.TrimSpace(*params.Name)
		}
		if params.Category != nil {
			p.Category = strings.TrimSpace(*params.Category)
		}
		if params.Price != nil {
			p.Price = *params.Price
		}
		if params.Quantity != nil {
			p.Quantity = max(*params.Quantity, 0)
		}
		if params.Description != nil {
			p.Description = *params.Description
		}

		products[idx] = p
		updated = p
		return products, nil
	}); err != nil {
		return model.Product{}, storeErr(err)
	}

	if params.Sale != nil {
		if err := s.appendUpdateSale(ctx, updated, *params.Sale); err != nil {
			return updated, err
		}
	}

	return updated, nil
}

// appendUpdateSale records the sale embedded in a product update. The
// inventory write has already happened, so a ledger failure here is the
// partial-failure case and is surfaced as such.
func (s *inventoryService) appendUpdateSale(ctx context.Context, p model.Product, sale SaleData) error {
	saleID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate uuid v7: %w", err)
	}

	saleDate := sale.SaleDate
	if saleDate.IsZero() {
		saleDate = time.Now().UTC()
	}
	totalPrice := sale.TotalPrice
	if totalPrice == 0 {
		totalPrice = float64(sale.QuantitySold) * p.Price
	}

	rec := model.SaleRecord{
		SaleID:       saleID.String(),
		ProductID:    p.ID,
		QuantitySold: sale.QuantitySold,
		SaleDate:     saleDate,
		TotalPrice:   totalPrice,
		Name:         p.Name,
		Category:     p.Category,
		UnitPrice:    p.Price,
		Barcode:      p.Barcode,
	}

	if err := s.ledger.Append(ctx, []model.SaleRecord{rec}); err != nil {
		s.logger.ErrorContext(ctx, "ledger append failed after inventory update",
			slog.String("product_id", p.ID), slog.Any("error", err))
		return apperr.PartialSaleErr.WrapParent(err)
	}

	return nil
}

func (s *inventoryService) SearchByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	p, ok, err := s.store.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, apperr.StorageErr.WrapParent(err)
	}
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *inventoryService) SearchByTerm(ctx context.Context, term string) (*model.Product, error) {
	matches, err := s.store.Search(ctx, term)
	if err != nil {
		return nil, apperr.StorageErr.WrapParent(err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// Import replaces the inventory wholesale from a CSV stream. Rows failing
// validation are skipped and counted, not fatal; a stream with no valid rows
// at all is rejected.
func (s *inventoryService) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	var result ImportResult
	products := []model.Product{}

	for row, err := range csvfile.DecodeRows(bufio.NewReader(r)) {
		if err != nil {
			result.Skipped++
			s.logger.WarnContext(ctx, "skipping unparsable import row", slog.Any("error", err))
			continue
		}

		p, err := csvfile.ProductFromRow(row)
		if err != nil {
			result.Skipped++
			s.logger.WarnContext(ctx, "skipping invalid import row",
				slog.String("name", row["name"]), slog.Any("error", err))
			continue
		}

		if p.ID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return ImportResult{}, fmt.Errorf("generate uuid v7: %w", err)
			}
			p.ID = id.String()
		}
		products = append(products, p)
	}

	if len(products) == 0 {
		return result, apperr.MalformedCSVErr
	}

	if err := s.store.ReplaceAll(ctx, products); err != nil {
		return ImportResult{}, apperr.StorageErr.WrapParent(err)
	}

	result.Imported = len(products)
	s.logger.InfoContext(ctx, "inventory imported",
		slog.Int("imported", result.Imported), slog.Int("skipped", result.Skipped))

	return result, nil
}

// SaveRaw overwrites the inventory file with verbatim CSV text after
// checking the header carries the required columns.
func (s *inventoryService) SaveRaw(ctx context.Context, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		// an empty save clears the catalog; keep the header so the file
		// stays decodable
		var buf bytes.Buffer
		if err := csvfile.EncodeRows(&buf, csvfile.InventoryHeader, nil); err != nil {
			return fmt.Errorf("encode empty inventory: %w", err)
		}
		data = buf.Bytes()
	} else {
		head, _, _ := strings.Cut(string(data), "\n")
		head = strings.ToLower(head)
		if !strings.Contains(head, "name") || !strings.Contains(head, "category") {
			return apperr.MalformedCSVErr
		}
	}

	if err := s.store.WriteRaw(ctx, data); err != nil {
		return apperr.StorageErr.WrapParent(err)
	}
	return nil
}
