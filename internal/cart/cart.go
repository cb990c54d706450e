// Package cart holds the in-memory shopping cart. It is intentionally
// small: items are keyed by product identity, which the catalog store
// keeps stable across refreshes, so cart references never dangle.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xenking/shopsync/internal/domain/product"
)

// Item is one cart line: a product and a quantity of at least 1.
type Item struct {
	Product  product.Product
	Quantity int
}

// Cart is a concurrency-safe cart store.
type Cart struct {
	mu    sync.Mutex
	items []Item
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add puts a product in the cart, or bumps its quantity when already
// present.
func (c *Cart) Add(p product.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].Product.ID == p.ID {
			c.items[i].Quantity++
			return
		}
	}
	c.items = append(c.items, Item{Product: p, Quantity: 1})
}

// Remove drops a product from the cart entirely.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].Product.ID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Increment bumps a line's quantity by one.
func (c *Cart) Increment(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].Product.ID == productID {
			c.items[i].Quantity++
			return
		}
	}
}

// Decrement lowers a line's quantity by one, flooring at 1. Removing the
// line is an explicit Remove.
func (c *Cart) Decrement(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].Product.ID == productID {
			if c.items[i].Quantity > 1 {
				c.items[i].Quantity--
			}
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Item(nil), c.items...)
}

// Total sums price times quantity across all lines.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
