// Package pricing turns a rolled-up product cost into a job quote.
package pricing

import (
	"github.com/Simplici0/woodshop/internal/money"
)

// ItemInput represents job-level inputs for one quoted product.
type ItemInput struct {
	// MaterialCost is the rolled-up unit cost of the product's bill of materials.
	MaterialCost float64 `json:"material_cost"`
	LaborMinutes float64 `json:"labor_minutes"`
	Quantity     float64 `json:"quantity"`
}

// GlobalInput represents shop-wide pricing parameters shared across quotes.
type GlobalInput struct {
	LaborHourlyRate float64 `json:"labor_hourly_rate"`
	OverheadFixed   float64 `json:"overhead_fixed"`
	OverheadPercent float64 `json:"overhead_percent"`
	ReworkPercent   float64 `json:"rework_percent"`
	WastePercent    float64 `json:"waste_percent"`
	MarginPercent   float64 `json:"margin_percent"`
	TaxEnabled      bool    `json:"tax_enabled"`
	TaxPercent      float64 `json:"tax_percent"`
	PackagingCost   float64 `json:"packaging_cost"`
	DeliveryCost    float64 `json:"delivery_cost"`
}

// Breakdown contains all intermediate and line-item values of the pricing calculation.
type Breakdown struct {
	MaterialCost  float64 `json:"material_cost"`
	LaborCost     float64 `json:"labor_cost"`
	Subtotal      float64 `json:"subtotal"`
	Overhead      float64 `json:"overhead"`
	Rework        float64 `json:"rework"`
	PackagingCost float64 `json:"packaging_cost"`
	DeliveryCost  float64 `json:"delivery_cost"`
	Margin        float64 `json:"margin"`
	Tax           float64 `json:"tax"`
}

// Totals contains roll-up values from the pricing calculation.
type Totals struct {
	Total     float64 `json:"total"`
	UnitPrice float64 `json:"unit_price"`
}

// Result groups the full pricing output, including detailed breakdown and totals.
type Result struct {
	Breakdown Breakdown `json:"breakdown"`
	Totals    Totals    `json:"totals"`
}

// Calculate computes pricing values from job-specific and global inputs.
// MaterialCost and LaborCost in the breakdown are per unit; everything from
// Subtotal on covers the whole quantity.
func Calculate(item ItemInput, global GlobalInput) Result {
	materialCost := item.MaterialCost * (1.0 + global.WastePercent/100.0)
	laborCost := (item.LaborMinutes / 60.0) * global.LaborHourlyRate

	subtotal := (materialCost + laborCost) * item.Quantity
	overhead := global.OverheadFixed + subtotal*(global.OverheadPercent/100.0)
	rework := subtotal * (global.ReworkPercent / 100.0)
	margin := (global.MarginPercent / 100.0) * (subtotal + overhead + rework)

	tax := 0.0
	if global.TaxEnabled {
		tax = (global.TaxPercent / 100.0) * (subtotal + overhead + rework + margin)
	}

	total := subtotal + overhead + rework + global.PackagingCost + global.DeliveryCost + margin + tax

	unitPrice := 0.0
	if item.Quantity > 0 {
		unitPrice = total / item.Quantity
	}

	return Result{
		Breakdown: Breakdown{
			MaterialCost:  materialCost,
			LaborCost:     laborCost,
			Subtotal:      subtotal,
			Overhead:      overhead,
			Rework:        rework,
			PackagingCost: global.PackagingCost,
			DeliveryCost:  global.DeliveryCost,
			Margin:        margin,
			Tax:           tax,
		},
		Totals: Totals{Total: total, UnitPrice: unitPrice},
	}
}

// PriceFromMargin returns the sale price that yields marginPercent over cost.
func PriceFromMargin(cost, marginPercent float64) float64 {
	return cost * (1.0 + marginPercent/100.0)
}

// MarginFromPrice returns the margin over cost, in percent, that price
// represents. A non-positive cost has no meaningful margin and yields 0.
func MarginFromPrice(cost, price float64) float64 {
	if cost <= 0 {
		return 0
	}
	return (price - cost) / cost * 100.0
}

// Installments splits total into n two-decimal payments whose sum equals the
// rounded total. The last payment absorbs the rounding remainder.
func Installments(total float64, n int) []float64 {
	parts := money.Split(total, n)
	out := make([]float64, len(parts))
	for i, p := range parts {
		out[i], _ = p.Float64()
	}
	return out
}
