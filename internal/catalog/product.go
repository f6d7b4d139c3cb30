package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidProduct is returned when a product fails boundary validation.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrDuplicateID is returned by New when two products share an ID.
	ErrDuplicateID = errors.New("duplicate product ID")

	// ErrCycle is returned by write paths that refuse a component edge closing a cycle.
	ErrCycle = errors.New("component graph contains a cycle")
)

// ProductType classifies a catalog product.
type ProductType string

const (
	RawMaterial  ProductType = "raw_material"
	Subassembly  ProductType = "subassembly"
	FinishedGood ProductType = "finished_good"
)

// ParseProductType converts user input into a ProductType.
func ParseProductType(raw string) (ProductType, error) {
	switch t := ProductType(strings.ToLower(strings.TrimSpace(raw))); t {
	case RawMaterial, Subassembly, FinishedGood:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown type %q", ErrInvalidProduct, raw)
}

// IsComposite reports whether the type derives its cost from components.
func (t ProductType) IsComposite() bool {
	return t == Subassembly || t == FinishedGood
}

// Component is one BOM edge: Quantity units of ProductID per unit of the parent.
type Component struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

// Product is a catalog entry. UnitCost is authoritative only for raw materials.
type Product struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	SKU        string      `json:"sku,omitempty"`
	Type       ProductType `json:"type"`
	UnitCost   float64     `json:"unit_cost"`
	SalePrice  float64     `json:"sale_price"`
	Stock      float64     `json:"stock"`
	MinStock   float64     `json:"min_stock"`
	Unit       string      `json:"unit,omitempty"`
	Components []Component `json:"components,omitempty"`
}

// idReserved holds the separators of the CSV component notation.
const idReserved = ":;"

// Validate checks the product invariants. It does not look at other products:
// dangling references and cycles are graph properties, see FindCycle.
func Validate(p Product) error {
	var errs []error
	if strings.TrimSpace(p.ID) == "" {
		errs = append(errs, errors.New("id is required"))
	} else if strings.ContainsAny(p.ID, idReserved) {
		errs = append(errs, fmt.Errorf("id cannot contain any of %q", idReserved))
	}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	switch p.Type {
	case RawMaterial, Subassembly, FinishedGood:
	default:
		errs = append(errs, fmt.Errorf("unknown type %q", p.Type))
	}
	if !nonNegative(p.UnitCost) {
		errs = append(errs, fmt.Errorf("unit_cost must be a non-negative number, got %v", p.UnitCost))
	}
	if !nonNegative(p.SalePrice) {
		errs = append(errs, fmt.Errorf("sale_price must be a non-negative number, got %v", p.SalePrice))
	}
	if math.IsNaN(p.Stock) || math.IsInf(p.Stock, 0) {
		errs = append(errs, errors.New("stock must be a number"))
	}
	if !nonNegative(p.MinStock) {
		errs = append(errs, fmt.Errorf("min_stock must be a non-negative number, got %v", p.MinStock))
	}
	if p.Type == RawMaterial && len(p.Components) > 0 {
		errs = append(errs, errors.New("raw materials cannot have components"))
	}
	for i, c := range p.Components {
		if strings.TrimSpace(c.ProductID) == "" {
			errs = append(errs, fmt.Errorf("component %d: product id is required", i))
			continue
		}
		if strings.ContainsAny(c.ProductID, idReserved) {
			errs = append(errs, fmt.Errorf("component %d: product id cannot contain any of %q", i, idReserved))
		}
		if c.ProductID == p.ID {
			errs = append(errs, fmt.Errorf("component %d: product cannot contain itself", i))
		}
		if !nonNegative(c.Quantity) {
			errs = append(errs, fmt.Errorf("component %d: quantity must be a non-negative number, got %v", i, c.Quantity))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w %q: %w", ErrInvalidProduct, p.ID, errors.Join(errs...))
}

func nonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func (p Product) clone() Product {
	if p.Components != nil {
		p.Components = append([]Component(nil), p.Components...)
	}
	return p
}
