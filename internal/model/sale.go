package model

import "time"

// SaleRecord is one ledger line: a single product within one transaction.
// All lines of a transaction share the same SaleID. Records are immutable
// once appended.
//
// Name, Category, UnitPrice and Barcode are denormalized snapshots taken at
// sale time; the referenced product may be renamed or deleted later without
// rewriting history.
type SaleRecord struct {
	SaleID       string    `json:"saleId"`
	ProductID    string    `json:"productId"`
	QuantitySold int       `json:"quantitySold"`
	SaleDate     time.Time `json:"saleDate"`
	TotalPrice   float64   `json:"totalPrice"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	UnitPrice    float64   `json:"unitPrice"`
	Barcode      string    `json:"barcode,omitempty"`
}
