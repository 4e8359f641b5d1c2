package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/grocyhq/grocy-pos/internal/apperr"
	"github.com/grocyhq/grocy-pos/internal/model"
)

// SaleItem is one basket line as submitted by the client, carrying the unit
// price and a product snapshot valid at sale time.
type SaleItem struct {
	ProductID string
	Name      string
	Category  string
	Barcode   string
	Quantity  int
	UnitPrice float64
}

type ProcessSaleParams struct {
	Items []SaleItem
	// SaleDate comes from the client when present; the server clock is used
	// otherwise.
	SaleDate time.Time
}

// ProcessSaleResult reports what was durably applied. Applied quantities can
// be lower than requested when stock ran out mid-basket (the decrement is
// clamped at zero, never rejected).
type ProcessSaleResult struct {
	SaleID  string             `json:"saleId"`
	Total   float64            `json:"total"`
	Lines   []model.SaleRecord `json:"lines"`
	Applied map[string]int     `json:"applied"`
}

type SaleProcessor interface {
	ProcessSale(ctx context.Context, params ProcessSaleParams) (ProcessSaleResult, error)
}

type saleProcessor struct {
	logger *slog.Logger
	store  InventoryStore
	ledger SaleLedger
}

func NewSaleProcessor(logger *slog.Logger, store InventoryStore, ledger SaleLedger) SaleProcessor {
	return &saleProcessor{
		logger: logger.With(slog.String("service", "sale")),
		store:  store,
		ledger: ledger,
	}
}

// ProcessSale turns a basket into a durable state change: one serialized
// inventory rewrite followed by one ledger append sharing a fresh saleId.
//
// The two writes hit different files with no cross-file transaction. When
// the ledger append fails after the inventory write succeeded, the result
// carries the already-applied decrements and the returned error is
// apperr.PartialSaleErr, so the condition stays observable instead of being
// reported as a plain failure.
func (s *saleProcessor) ProcessSale(ctx context.Context, params ProcessSaleParams) (ProcessSaleResult, error) {
	if len(params.Items) == 0 {
		return ProcessSaleResult{}, apperr.EmptySaleErr
	}

	saleID, err := uuid.NewV7()
	if err != nil {
		return ProcessSaleResult{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	saleDate := params.SaleDate
	if saleDate.IsZero() {
		saleDate = time.Now().UTC()
	}

	result := ProcessSaleResult{
		SaleID:  saleID.String(),
		Applied: make(map[string]int, len(params.Items)),
	}

	if err := s.store.Mutate(ctx, func(products []model.Product) ([]model.Product, error) {
		byID := make(map[string]int, len(products))
		for i, p := range products {
			byID[p.ID] = i
		}

		result.Lines = result.Lines[:0]
		for _, item := range params.Items {
			line := model.SaleRecord{
				SaleID:       result.SaleID,
				ProductID:    item.ProductID,
				QuantitySold: item.Quantity,
				SaleDate:     saleDate,
				TotalPrice:   float64(item.Quantity) * item.UnitPrice,
				Name:         item.Name,
				Category:     item.Category,
				UnitPrice:    item.UnitPrice,
				Barcode:      item.Barcode,
			}

			if i, ok := byID[item.ProductID]; ok {
				p := products[i]
				applied := min(item.Quantity, p.Quantity)
				p.Quantity -= applied
				products[i] = p
				result.Applied[item.ProductID] = applied

				// prefer the catalog snapshot over whatever the client sent
				if line.Name == "" {
					line.Name = p.Name
				}
				if line.Category == "" {
					line.Category = p.Category
				}
				if line.Barcode == "" {
					line.Barcode = p.Barcode
				}
			} else {
				// unknown products still get a ledger line; the sale happened
				// even if the catalog no longer knows the item
				result.Applied[item.ProductID] = 0
			}

			result.Total += line.TotalPrice
			result.Lines = append(result.Lines, line)
		}

		return products, nil
	}); err != nil {
		return ProcessSaleResult{}, storeErr(err)
	}

	if err := s.ledger.Append(ctx, result.Lines); err != nil {
		s.logger.ErrorContext(ctx, "ledger append failed after inventory write",
			slog.String("sale_id", result.SaleID), slog.Any("error", err))
		return result, apperr.PartialSaleErr.WrapParent(err)
	}

	s.logger.InfoContext(ctx, "sale processed",
		slog.String("sale_id", result.SaleID),
		slog.Int("lines", len(result.Lines)),
		slog.Float64("total", result.Total))

	return result, nil
}
