package pricing

import (
	"math"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestCalculate_QuantityGreaterThanOne(t *testing.T) {
	item := ItemInput{
		MaterialCost: 32,
		LaborMinutes: 30,
		Quantity:     3,
	}
	global := GlobalInput{LaborHourlyRate: 20}

	result := Calculate(item, global)

	nearlyEqual(t, "materialCost", result.Breakdown.MaterialCost, 32)
	nearlyEqual(t, "laborCost", result.Breakdown.LaborCost, 10)
	nearlyEqual(t, "subtotal", result.Breakdown.Subtotal, 126)
	nearlyEqual(t, "total", result.Totals.Total, 126)
	nearlyEqual(t, "unitPrice", result.Totals.UnitPrice, 42)
}

func TestCalculate_WastePercent_ZeroAndFive(t *testing.T) {
	item := ItemInput{MaterialCost: 10, Quantity: 1}

	withoutWaste := Calculate(item, GlobalInput{WastePercent: 0})
	withWaste := Calculate(item, GlobalInput{WastePercent: 5})

	nearlyEqual(t, "withoutWaste materialCost", withoutWaste.Breakdown.MaterialCost, 10)
	nearlyEqual(t, "withWaste materialCost", withWaste.Breakdown.MaterialCost, 10.5)
	nearlyEqual(t, "withoutWaste total", withoutWaste.Totals.Total, 10)
	nearlyEqual(t, "withWaste total", withWaste.Totals.Total, 10.5)
}

func TestCalculate_MarginPercent_ZeroAndThirty(t *testing.T) {
	item := ItemInput{MaterialCost: 10, Quantity: 1}

	withoutMargin := Calculate(item, GlobalInput{MarginPercent: 0})
	withMargin := Calculate(item, GlobalInput{MarginPercent: 30})

	nearlyEqual(t, "withoutMargin margin", withoutMargin.Breakdown.Margin, 0)
	nearlyEqual(t, "withMargin margin", withMargin.Breakdown.Margin, 3)
	nearlyEqual(t, "withoutMargin total", withoutMargin.Totals.Total, 10)
	nearlyEqual(t, "withMargin total", withMargin.Totals.Total, 13)
}

func TestCalculate_TaxEnabledOnAndOff(t *testing.T) {
	item := ItemInput{MaterialCost: 10, Quantity: 1}

	withoutTax := Calculate(item, GlobalInput{MarginPercent: 30, TaxPercent: 16})
	withTax := Calculate(item, GlobalInput{MarginPercent: 30, TaxEnabled: true, TaxPercent: 16})

	nearlyEqual(t, "withoutTax tax", withoutTax.Breakdown.Tax, 0)
	nearlyEqual(t, "withTax tax", withTax.Breakdown.Tax, 2.08)
	nearlyEqual(t, "withoutTax total", withoutTax.Totals.Total, 13)
	nearlyEqual(t, "withTax total", withTax.Totals.Total, 15.08)
}

func TestCalculate_OverheadReworkAndFlatCosts(t *testing.T) {
	item := ItemInput{MaterialCost: 40, LaborMinutes: 60, Quantity: 2}
	global := GlobalInput{
		LaborHourlyRate: 15,
		OverheadFixed:   10,
		OverheadPercent: 20,
		ReworkPercent:   10,
		PackagingCost:   3,
		DeliveryCost:    7,
	}

	result := Calculate(item, global)

	nearlyEqual(t, "subtotal", result.Breakdown.Subtotal, 110)
	nearlyEqual(t, "overhead", result.Breakdown.Overhead, 32)
	nearlyEqual(t, "rework", result.Breakdown.Rework, 11)
	nearlyEqual(t, "total", result.Totals.Total, 163)
}

func TestCalculate_ZeroQuantityHasNoUnitPrice(t *testing.T) {
	result := Calculate(ItemInput{MaterialCost: 10}, GlobalInput{OverheadFixed: 5})

	nearlyEqual(t, "total", result.Totals.Total, 5)
	nearlyEqual(t, "unitPrice", result.Totals.UnitPrice, 0)
}

func TestPriceAndMarginAreInverse(t *testing.T) {
	price := PriceFromMargin(32, 25)
	nearlyEqual(t, "price", price, 40)
	nearlyEqual(t, "margin", MarginFromPrice(32, price), 25)
	nearlyEqual(t, "margin without cost", MarginFromPrice(0, 40), 0)
}

func TestInstallmentsSumToRoundedTotal(t *testing.T) {
	parts := Installments(100, 3)
	if len(parts) != 3 {
		t.Fatalf("len = %d, want 3", len(parts))
	}
	nearlyEqual(t, "first", parts[0], 33.33)
	nearlyEqual(t, "second", parts[1], 33.33)
	nearlyEqual(t, "last", parts[2], 33.34)

	if got := Installments(100, 0); len(got) != 0 {
		t.Fatalf("Installments(100, 0) = %v, want empty", got)
	}
}
