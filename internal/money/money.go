// Package money rounds and formats amounts at display boundaries. Amounts are
// carried as float64 everywhere else.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a rate config has none.
const DefaultCurrency = "COP"

// Round returns v rounded to two decimals, half away from zero. NaN and
// infinities become zero.
func Round(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(2)
}

// String formats v with exactly two decimals.
func String(v float64) string {
	return Round(v).StringFixed(2)
}

// Format formats v with two decimals followed by the currency code.
func Format(v float64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return String(v) + " " + currency
}

// Split divides total into n two-decimal parts that add up to the rounded
// total. The last part absorbs the rounding remainder.
func Split(total float64, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	rounded := Round(total)
	count := decimal.NewFromInt(int64(n))
	part := rounded.Div(count).RoundDown(2)

	parts := make([]decimal.Decimal, n)
	sum := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = part
		sum = sum.Add(part)
	}
	parts[n-1] = rounded.Sub(sum)
	return parts
}
