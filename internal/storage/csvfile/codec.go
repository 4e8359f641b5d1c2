package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/grocyhq/grocy-pos/internal/model"
)

// Row is one decoded CSV row, keyed by lower-cased, trimmed header name.
// Values are raw field strings; callers validate and coerce.
type Row map[string]string

// Canonical column orders of the two persisted files.
var (
	InventoryHeader = []string{"id", "barcode", "name", "category", "price", "quantity", "description", "dateAdded"}
	SalesHeader     = []string{"saleId", "productId", "quantitySold", "saleDate", "totalPrice", "name", "category", "unitPrice", "barcode"}
)

// DecodeRows lazily yields one Row per data line of r. The first line is the
// header; its names are matched case-insensitively. The sequence is
// single-pass and stops at the first yield returning false.
//
// A row-level parse error is yielded as (nil, err) and decoding continues
// with the next line, so callers can count bad rows without aborting.
func DecodeRows(r io.Reader) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true

		header, err := cr.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			yield(nil, fmt.Errorf("read header: %w", err))
			return
		}
		for i, h := range header {
			header[i] = strings.ToLower(strings.TrimSpace(h))
		}

		for line := 2; ; line++ {
			record, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				if !yield(nil, fmt.Errorf("line %d: %w", line, err)) {
					return
				}
				continue
			}

			row := make(Row, len(header))
			for i, h := range header {
				if i < len(record) {
					row[h] = record[i]
				}
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// EncodeRows writes the header first, in the given order, then one line per
// row. encoding/csv quotes embedded delimiters, quotes and newlines so the
// output round-trips through DecodeRows losslessly.
func EncodeRows(w io.Writer, header []string, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range rows {
		for i, h := range header {
			record[i] = row[strings.ToLower(h)]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ProductFromRow validates and coerces a raw row into a Product.
//
// name and category are required; price and quantity fall back to 0 when
// unparsable (cast never panics); a missing or unparsable dateAdded gets the
// current time, matching ingest-time semantics.
func ProductFromRow(row Row) (model.Product, error) {
	name := strings.TrimSpace(row["name"])
	category := strings.TrimSpace(row["category"])
	if name == "" {
		return model.Product{}, fmt.Errorf("missing required field name")
	}
	if category == "" {
		return model.Product{}, fmt.Errorf("missing required field category")
	}

	price := cast.ToFloat64(strings.TrimSpace(row["price"]))
	quantity := cast.ToInt(strings.TrimSpace(row["quantity"]))
	if price < 0 {
		return model.Product{}, fmt.Errorf("negative price %v", price)
	}
	if quantity < 0 {
		return model.Product{}, fmt.Errorf("negative quantity %d", quantity)
	}

	return model.Product{
		ID:          strings.TrimSpace(row["id"]),
		Barcode:     strings.TrimSpace(row["barcode"]),
		Name:        name,
		Category:    category,
		Price:       price,
		Quantity:    quantity,
		Description: row["description"],
		DateAdded:   parseTime(row["dateadded"]),
	}, nil
}

// RowFromProduct is the inverse of ProductFromRow for valid products.
func RowFromProduct(p model.Product) Row {
	return Row{
		"id":          p.ID,
		"barcode":     p.Barcode,
		"name":        p.Name,
		"category":    p.Category,
		"price":       formatFloat(p.Price),
		"quantity":    strconv.Itoa(p.Quantity),
		"description": p.Description,
		"dateadded":   p.DateAdded.UTC().Format(time.RFC3339Nano),
	}
}

// SaleFromRow coerces a ledger row back into a SaleRecord.
func SaleFromRow(row Row) (model.SaleRecord, error) {
	if strings.TrimSpace(row["saleid"]) == "" {
		return model.SaleRecord{}, fmt.Errorf("missing required field saleId")
	}

	return model.SaleRecord{
		SaleID:       strings.TrimSpace(row["saleid"]),
		ProductID:    strings.TrimSpace(row["productid"]),
		QuantitySold: cast.ToInt(strings.TrimSpace(row["quantitysold"])),
		SaleDate:     parseTime(row["saledate"]),
		TotalPrice:   cast.ToFloat64(strings.TrimSpace(row["totalprice"])),
		Name:         row["name"],
		Category:     row["category"],
		UnitPrice:    cast.ToFloat64(strings.TrimSpace(row["unitprice"])),
		Barcode:      strings.TrimSpace(row["barcode"]),
	}, nil
}

// RowFromSale maps a SaleRecord onto the sales.csv columns.
func RowFromSale(rec model.SaleRecord) Row {
	return Row{
		"saleid":       rec.SaleID,
		"productid":    rec.ProductID,
		"quantitysold": strconv.Itoa(rec.QuantitySold),
		"saledate":     rec.SaleDate.UTC().Format(time.RFC3339Nano),
		"totalprice":   formatFloat(rec.TotalPrice),
		"name":         rec.Name,
		"category":     rec.Category,
		"unitprice":    formatFloat(rec.UnitPrice),
		"barcode":      rec.Barcode,
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now().UTC()
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}
