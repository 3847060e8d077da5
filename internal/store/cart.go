package store

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Cart is the ordered collection of cart lines, at most one per (product, variant).
type Cart struct {
	mu      sync.RWMutex
	lines   []domain.CartLine
	index   map[domain.LineKey]int
	persist *Persister
}

// NewCart hydrates the cart from persisted lines. Duplicate keys are merged and
// quantities below 1 are raised to 1.
func NewCart(lines []domain.CartLine, persist *Persister) *Cart {
	c := &Cart{
		index:   make(map[domain.LineKey]int),
		persist: persist,
	}
	for _, l := range lines {
		key := domain.NewLineKey(l.Product.ID, l.Variant)
		qty := max(l.Quantity, 1)
		if i, ok := c.index[key]; ok {
			c.lines[i].Quantity += qty
			continue
		}
		c.index[key] = len(c.lines)
		c.lines = append(c.lines, domain.CartLine{
			Key:      key,
			Variant:  l.Variant,
			Quantity: qty,
			Product:  l.Product.Clone(),
		})
	}
	persist.register(c)
	return c
}

// AddLine increments the line for (product, variant) or appends a new one with
// quantity 1. The in-memory change always applies; the error only reports a failed write.
func (c *Cart) AddLine(ctx context.Context, product domain.Product, variant string) error {
	key := domain.NewLineKey(product.ID, variant)

	c.mu.Lock()
	if i, ok := c.index[key]; ok {
		c.lines[i].Quantity++
	} else {
		c.index[key] = len(c.lines)
		c.lines = append(c.lines, domain.CartLine{
			Key:      key,
			Variant:  variant,
			Quantity: 1,
			Product:  product.Clone(),
		})
	}
	c.mu.Unlock()

	return c.persist.Flush(ctx)
}

// SetQuantity sets the quantity of an existing line, clamped to at least 1.
// Unknown keys are ignored.
func (c *Cart) SetQuantity(ctx context.Context, key domain.LineKey, qty int) error {
	c.mu.Lock()
	i, ok := c.index[key]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	c.lines[i].Quantity = max(qty, 1)
	c.mu.Unlock()

	return c.persist.Flush(ctx)
}

// RemoveLine deletes the line if present. Removing an unknown key is a no-op.
func (c *Cart) RemoveLine(ctx context.Context, key domain.LineKey) error {
	c.mu.Lock()
	i, ok := c.index[key]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	c.reindex()
	c.mu.Unlock()

	return c.persist.Flush(ctx)
}

func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.lines = nil
	c.index = make(map[domain.LineKey]int)
	c.mu.Unlock()

	return c.persist.Flush(ctx)
}

// Subtotal sums price x quantity over the embedded product snapshots.
func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Total())
	}
	return total
}

// Lines returns copies of the lines in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyLines()
}

func (c *Cart) Line(key domain.LineKey) (domain.CartLine, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[key]
	if !ok {
		return domain.CartLine{}, false
	}
	l := c.lines[i]
	l.Product = l.Product.Clone()
	return l, true
}

// Count is the total quantity across all lines.
func (c *Cart) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lines) == 0
}

func (c *Cart) contribute(snap *domain.Snapshot) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap.Cart = c.copyLines()
}

func (c *Cart) copyLines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	for i, l := range c.lines {
		out[i] = l
		out[i].Product = l.Product.Clone()
	}
	return out
}

func (c *Cart) reindex() {
	c.index = make(map[domain.LineKey]int, len(c.lines))
	for i, l := range c.lines {
		c.index[l.Key] = i
	}
}
