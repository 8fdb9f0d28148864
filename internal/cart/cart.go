// Package cart holds the session-scoped shopping cart. A cart is owned
// exclusively by one checkout session and is never shared, so it carries
// no locking of its own; the service guards session access.
package cart

import (
	"fmt"

	"smartfit/backend/internal/domain"
)

// StockExceededError is the advisory add-time failure: the cart would
// promise more units of a sku (summed across all its sizes) than the
// product snapshot shows in stock. It is only advisory; the commit-time
// re-check inside the transaction is authoritative.
type StockExceededError struct {
	SKU       int64
	Requested int
	Available int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("stock exceeded for sku %d: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

// Cart maps variant keys to requested quantities, preserving the order in
// which keys were first added so snapshots are stable.
type Cart struct {
	qty   map[domain.VariantKey]int
	order []domain.VariantKey
}

func New() *Cart {
	return &Cart{qty: make(map[domain.VariantKey]int)}
}

// skuUsage sums requested quantities for a sku across every size already
// in the cart, optionally substituting a new value for one key.
func (c *Cart) skuUsage(sku int64, replace *domain.VariantKey, replaceQty int) int {
	usage := 0
	for key, qty := range c.qty {
		if key.SKU != sku {
			continue
		}
		if replace != nil && key == *replace {
			continue
		}
		usage += qty
	}
	if replace != nil {
		usage += replaceQty
	}
	return usage
}

// Add puts one more unit of the given variant in the cart, checking the
// aggregate usage of the sku against the product snapshot's stock.
func (c *Cart) Add(sku int64, size string, snapshot domain.Product) error {
	if size == "" {
		size = domain.SizeNone
	}
	if usage := c.skuUsage(sku, nil, 0); usage >= snapshot.QtyInStock {
		return &StockExceededError{SKU: sku, Requested: usage + 1, Available: snapshot.QtyInStock}
	}
	key := domain.VariantKey{SKU: sku, Size: size}
	if _, exists := c.qty[key]; !exists {
		c.order = append(c.order, key)
	}
	c.qty[key]++
	return nil
}

// SetQuantity sets an absolute quantity for a variant. Zero or negative
// removes the entry. A positive quantity is rejected if the sku's new
// aggregate usage would exceed the snapshot's stock.
func (c *Cart) SetQuantity(key domain.VariantKey, qty int, snapshot domain.Product) error {
	if qty <= 0 {
		c.remove(key)
		return nil
	}
	if usage := c.skuUsage(key.SKU, &key, qty); usage > snapshot.QtyInStock {
		return &StockExceededError{SKU: key.SKU, Requested: usage, Available: snapshot.QtyInStock}
	}
	if _, exists := c.qty[key]; !exists {
		c.order = append(c.order, key)
	}
	c.qty[key] = qty
	return nil
}

func (c *Cart) remove(key domain.VariantKey) {
	if _, exists := c.qty[key]; !exists {
		return
	}
	delete(c.qty, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Clear empties the cart. Used after a successful commit or when the
// session is abandoned.
func (c *Cart) Clear() {
	c.qty = make(map[domain.VariantKey]int)
	c.order = nil
}

// Snapshot returns the cart lines in insertion order. The slice is a
// copy; later cart mutations do not affect it.
func (c *Cart) Snapshot() []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(c.order))
	for _, key := range c.order {
		lines = append(lines, domain.CartLine{Key: key, Qty: c.qty[key]})
	}
	return lines
}

// ItemCount is the total number of units across all lines.
func (c *Cart) ItemCount() int {
	count := 0
	for _, qty := range c.qty {
		count += qty
	}
	return count
}

func (c *Cart) Empty() bool {
	return len(c.qty) == 0
}
