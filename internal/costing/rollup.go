// Package costing computes product unit costs by rolling up bills of materials.
//
// A raw material costs its stored unit cost. A subassembly or finished good
// costs the sum of its components' costs, each multiplied by the quantity
// consumed per unit. Rollups read an immutable catalog snapshot and keep no
// state between calls, so they may run concurrently.
//
// Malformed data never stops a rollup. A component that is already on the
// current ancestor chain (a cycle), that is absent from the snapshot, or that
// carries an invalid quantity contributes 0 and is reported to the caller's
// Reporter. The same component may legitimately appear in several branches;
// only the ancestor chain counts as a cycle.
package costing

import (
	"math"

	"github.com/Simplici0/woodshop/internal/catalog"
)

// Line is the costed contribution of one direct component.
type Line struct {
	ComponentID  string  `json:"component_id"`
	Name         string  `json:"name,omitempty"`
	Quantity     float64 `json:"quantity"`
	UnitCost     float64 `json:"unit_cost"`
	ExtendedCost float64 `json:"extended_cost"`
}

// Result is a rollup of a single product.
type Result struct {
	ProductID string              `json:"product_id"`
	Name      string              `json:"name,omitempty"`
	Type      catalog.ProductType `json:"type,omitempty"`
	Cost      float64             `json:"cost"`
	Lines     []Line              `json:"lines"`
	Issues    []Issue             `json:"issues"`
}

// ComputeCost returns the unit cost of productID. It never fails: anomalies are
// reported to r (which may be nil) and contribute 0.
func ComputeCost(cat *catalog.Catalog, productID string, r Reporter) float64 {
	return newWalker(cat, r, false).cost(productID, "")
}

// Rollup costs productID and also returns its one-level breakdown and every
// issue met below it. Issues are forwarded to r as well.
func Rollup(cat *catalog.Catalog, productID string, r Reporter) Result {
	collector := &Collector{}
	w := newWalker(cat, Multi(collector, r), true)
	cost := w.cost(productID, "")

	res := Result{
		ProductID: productID,
		Cost:      cost,
		Lines:     w.lines,
		Issues:    collector.Issues(),
	}
	if p, ok := cat.Get(productID); ok {
		res.Name = p.Name
		res.Type = p.Type
	}
	if res.Lines == nil {
		res.Lines = []Line{}
	}
	if res.Issues == nil {
		res.Issues = []Issue{}
	}
	return res
}

// CostAll costs every product in the snapshot, each with a fresh ancestor chain.
func CostAll(cat *catalog.Catalog, r Reporter) map[string]float64 {
	out := make(map[string]float64, cat.Len())
	for _, id := range cat.IDs() {
		out[id] = ComputeCost(cat, id, r)
	}
	return out
}

type walker struct {
	cat      *catalog.Catalog
	r        Reporter
	visiting map[string]bool
	path     []string

	withLines bool
	lines     []Line
}

func newWalker(cat *catalog.Catalog, r Reporter, withLines bool) *walker {
	if r == nil {
		r = Discard
	}
	return &walker{
		cat:       cat,
		r:         r,
		visiting:  make(map[string]bool),
		withLines: withLines,
	}
}

func (w *walker) report(kind IssueKind, productID, parentID string) {
	w.r.Report(Issue{
		Kind:      kind,
		ProductID: productID,
		ParentID:  parentID,
		Path:      append([]string(nil), w.path...),
	})
}

func (w *walker) cost(id, parent string) float64 {
	if w.visiting[id] {
		w.report(IssueCycle, id, parent)
		return 0
	}
	p, ok := w.cat.Get(id)
	if !ok {
		w.report(IssueMissing, id, parent)
		return 0
	}

	w.visiting[id] = true
	w.path = append(w.path, id)
	defer func() {
		delete(w.visiting, id)
		w.path = w.path[:len(w.path)-1]
	}()

	if p.Type == catalog.RawMaterial {
		if !valid(p.UnitCost) {
			w.report(IssueBadUnitCost, id, parent)
			return 0
		}
		return p.UnitCost
	}

	top := w.withLines && len(w.path) == 1
	sum := 0.0
	for _, c := range p.Components {
		qty := c.Quantity
		if !valid(qty) {
			w.report(IssueBadQuantity, c.ProductID, id)
			qty = 0
		}
		unit := w.cost(c.ProductID, id)
		sum += unit * qty

		if top {
			line := Line{
				ComponentID:  c.ProductID,
				Quantity:     qty,
				UnitCost:     unit,
				ExtendedCost: unit * qty,
			}
			if cp, ok := w.cat.Get(c.ProductID); ok {
				line.Name = cp.Name
			}
			w.lines = append(w.lines, line)
		}
	}
	return sum
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
