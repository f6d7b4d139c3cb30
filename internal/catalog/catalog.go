// Package catalog holds the product catalog snapshot that cost rollups read.
//
// A Catalog is built once from validated products and never mutated afterwards,
// so it can be shared between goroutines without locking.
package catalog

import (
	"fmt"
	"slices"
	"sort"
)

// Catalog is an immutable snapshot of products keyed by ID.
type Catalog struct {
	products map[string]Product
}

// New validates every product and builds a snapshot. Component references to
// unknown products and cycles are accepted; the cost engine tolerates both.
func New(products []Product) (*Catalog, error) {
	m := make(map[string]Product, len(products))
	for _, p := range products {
		if err := Validate(p); err != nil {
			return nil, err
		}
		if _, exists := m[p.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		m[p.ID] = p.clone()
	}
	return &Catalog{products: m}, nil
}

// Unvalidated builds a snapshot without running Validate. It is meant for
// data read from stores this service does not write, where a bad record must
// degrade a rollup rather than block loading. Later duplicates win.
func Unvalidated(products []Product) *Catalog {
	m := make(map[string]Product, len(products))
	for _, p := range products {
		m[p.ID] = p.clone()
	}
	return &Catalog{products: m}
}

// Get returns a copy of the product with the given ID.
func (c *Catalog) Get(id string) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	p, ok := c.products[id]
	if !ok {
		return Product{}, false
	}
	return p.clone(), true
}

// components returns the stored component slice without copying.
// Callers must not modify it.
func (c *Catalog) components(id string) []Component {
	return c.products[id].Components
}

// Len returns the number of products in the snapshot.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// IDs returns all product IDs in ascending order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.products))
	for id := range c.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Products returns copies of all products ordered by ID.
func (c *Catalog) Products() []Product {
	ids := c.IDs()
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.products[id].clone())
	}
	return out
}

// DanglingReferences maps each product ID to the component IDs it references
// that are not present in the snapshot.
func (c *Catalog) DanglingReferences() map[string][]string {
	out := make(map[string][]string)
	for _, id := range c.IDs() {
		for _, comp := range c.products[id].Components {
			if _, ok := c.products[comp.ProductID]; !ok && !slices.Contains(out[id], comp.ProductID) {
				out[id] = append(out[id], comp.ProductID)
			}
		}
	}
	return out
}
