package model

import (
	"strings"
	"time"
)

// Product is one catalog entry of the inventory store.
//
// ID is opaque: server-generated ids are UUIDv7 strings, but imported CSV
// files may carry arbitrary identifiers, so it stays a string end to end.
type Product struct {
	ID          string    `json:"id"`
	Barcode     string    `json:"barcode,omitempty"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Description string    `json:"description,omitempty"`
	DateAdded   time.Time `json:"dateAdded"`
}

// MatchesTerm reports whether term matches the product's name, category or
// barcode, case-insensitively, as a substring.
func (p Product) MatchesTerm(term string) bool {
	t := strings.ToLower(strings.TrimSpace(term))
	if t == "" {
		return false
	}
	return strings.Contains(strings.ToLower(p.Name), t) ||
		strings.Contains(strings.ToLower(p.Category), t) ||
		strings.Contains(strings.ToLower(p.Barcode), t)
}
