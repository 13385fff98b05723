package helpers

import "github.com/shopspring/decimal"

// Round2 rounds a monetary amount to 2 decimal places, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Payout computes stake x odds exactly and rounds the result to 2 decimal
// places, so 1000 at 2.50 is always 2500.00 with no float drift.
func Payout(stake, odds float64) float64 {
	return decimal.NewFromFloat(stake).
		Mul(decimal.NewFromFloat(odds)).
		Round(2).
		InexactFloat64()
}

// Scale multiplies an odds value by a factor and rounds to 2 decimal places.
func Scale(odds, factor float64) float64 {
	return decimal.NewFromFloat(odds).
		Mul(decimal.NewFromFloat(factor)).
		Round(2).
		InexactFloat64()
}

// FormatAmount renders an amount with exactly two decimals for display and
// ledger notes.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
