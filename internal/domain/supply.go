package domain

import (
	"github.com/shopspring/decimal"
)

// Category groups catalog supplies (e.g. "Dairy", "Vegetables")
type Category struct {
	ID   int64
	Name string
}

// Supply is read-only catalog reference data owned by the backend
type Supply struct {
	ID          int64
	Name        string
	Description string
	Perishable  bool
	Category    *Category
}

// InCategory reports whether the supply belongs to the given category id
func (s Supply) InCategory(categoryID int64) bool {
	return s.Category != nil && s.Category.ID == categoryID
}

// Unit of measure of a custom supply
type Unit struct {
	Name         string
	Abbreviation string
}

// CustomSupply is a per-user specialization of a catalog Supply.
// IDs <= 0 identify records that only exist locally.
type CustomSupply struct {
	ID           int64
	UserID       int64
	SupplyID     int64
	Supply       *Supply
	Unit         Unit
	Price        decimal.Decimal
	CurrencyCode string
	MinStock     int
	MaxStock     int
	Description  string
}

// Validate enforces 0 <= MinStock <= MaxStock and a non-negative price
func (c CustomSupply) Validate() error {
	if c.MinStock < 0 || c.MaxStock < 0 {
		return ErrNegativeStock
	}
	if c.MinStock > c.MaxStock {
		return ErrInvalidStockRange
	}
	if c.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// IsLocalOnly reports whether the record was never persisted by the backend
func (c CustomSupply) IsLocalOnly() bool {
	return c.ID <= 0
}

// Name returns the catalog name when the supply reference is hydrated
func (c CustomSupply) Name() string {
	if c.Supply != nil {
		return c.Supply.Name
	}
	return c.Description
}
