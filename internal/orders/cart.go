// Package orders turns a buyer's cart into per-supplier orders and drives
// the order state machine against the backend.
package orders

import (
	"errors"
	"sync"

	"restock-sync/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNotInCart = errors.New("batch is not in the cart")
	ErrExceedsStock  = errors.New("quantity exceeds available stock")
)

// Cart is the working set of order lines, at most one per batch id
type Cart struct {
	mu    sync.Mutex
	lines []domain.OrderBatchItem
}

func NewCart() *Cart {
	return &Cart{lines: make([]domain.OrderBatchItem, 0)}
}

// AddItem adds quantity units of batch. Adding a batch already in the cart
// bumps its quantity and refreshes the batch snapshot.
func (c *Cart) AddItem(batch domain.Batch, quantity int) (domain.OrderBatchItem, error) {
	if quantity <= 0 {
		return domain.OrderBatchItem{}, domain.ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(batch.ID); i >= 0 {
		next := c.lines[i].Quantity + quantity
		if next > batch.Stock {
			return domain.OrderBatchItem{}, ErrExceedsStock
		}
		c.lines[i].Quantity = next
		c.lines[i].Batch = batch
		return c.lines[i], nil
	}

	if quantity > batch.Stock {
		return domain.OrderBatchItem{}, ErrExceedsStock
	}
	line := domain.OrderBatchItem{BatchID: batch.ID, Quantity: quantity, Batch: batch}
	c.lines = append(c.lines, line)
	return line, nil
}

func (c *Cart) UpdateQuantity(batchID string, quantity int) (domain.OrderBatchItem, error) {
	if quantity <= 0 {
		return domain.OrderBatchItem{}, domain.ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(batchID)
	if i < 0 {
		return domain.OrderBatchItem{}, ErrItemNotInCart
	}
	if quantity > c.lines[i].Batch.Stock {
		return domain.OrderBatchItem{}, ErrExceedsStock
	}
	c.lines[i].Quantity = quantity
	return c.lines[i], nil
}

// RemoveItem reports whether a line was removed
func (c *Cart) RemoveItem(batchID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(batchID)
	if i < 0 {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true
}

// Items returns a copy of the lines in insertion order
func (c *Cart) Items() []domain.OrderBatchItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.OrderBatchItem, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total is the sum of price * quantity over every line
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = c.lines[:0]
}

func (c *Cart) removeBatches(batchIDs map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.lines[:0]
	for _, line := range c.lines {
		if !batchIDs[line.BatchID] {
			kept = append(kept, line)
		}
	}
	c.lines = kept
}

// indexOf must be called with mu held
func (c *Cart) indexOf(batchID string) int {
	for i, line := range c.lines {
		if line.BatchID == batchID {
			return i
		}
	}
	return -1
}

// Carts holds one cart per buyer
type Carts struct {
	mu    sync.Mutex
	carts map[int64]*Cart
}

func NewCarts() *Carts {
	return &Carts{carts: make(map[int64]*Cart)}
}

// For returns the buyer's cart, creating it on first use
func (c *Carts) For(adminRestaurantID int64) *Cart {
	c.mu.Lock()
	defer c.mu.Unlock()
	cart, ok := c.carts[adminRestaurantID]
	if !ok {
		cart = NewCart()
		c.carts[adminRestaurantID] = cart
	}
	return cart
}
