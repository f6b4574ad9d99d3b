package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NonPerishableDate is the backend sentinel for batches that never expire
const NonPerishableDate = "9999-12-31"

// LocalBatchPrefix marks batch ids synthesized on the device
const LocalBatchPrefix = "local-"

// Batch is a physical stock lot of a CustomSupply
type Batch struct {
	ID             string
	UserID         int64
	Stock          int
	ExpirationDate *time.Time
	CustomSupply   CustomSupply
}

// Validate checks the batch invariants that the client can enforce
func (b Batch) Validate() error {
	if b.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}

// NonPerishable is true when there is no expiration or the sentinel date is used
func (b Batch) NonPerishable() bool {
	if b.ExpirationDate == nil {
		return true
	}
	return b.ExpirationDate.Format("2006-01-02") == NonPerishableDate
}

// ExpiresWithin reports whether a perishable batch expires before now+window
func (b Batch) ExpiresWithin(now time.Time, window time.Duration) bool {
	if b.NonPerishable() {
		return false
	}
	return !b.ExpirationDate.After(now.Add(window))
}

// IsLocalOnly reports whether the batch was synthesized locally and never synced
func (b Batch) IsLocalOnly() bool {
	return b.ID == "" || strings.HasPrefix(b.ID, LocalBatchPrefix)
}

// LineTotal is the price of quantity units of this batch
func (b Batch) LineTotal(quantity int) decimal.Decimal {
	return b.CustomSupply.Price.Mul(decimal.NewFromInt(int64(quantity)))
}

// ParseExpiration parses a yyyy-mm-dd date, returning nil for empty input
func ParseExpiration(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatExpiration renders the expiration date, using the sentinel when absent
func FormatExpiration(t *time.Time) string {
	if t == nil {
		return NonPerishableDate
	}
	return t.Format("2006-01-02")
}
