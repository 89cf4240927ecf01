package core

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Variance is actual minus forecast. Positive means overspend.
// Missing inputs are the zero decimal.
func Variance(actual, forecast decimal.Decimal) decimal.Decimal {
	return actual.Sub(forecast)
}

// UtilizationPct returns actual as a percentage of forecast, rounded to one
// decimal place (half to even). ok is false when forecast is zero.
func UtilizationPct(actual, forecast decimal.Decimal) (pct decimal.Decimal, ok bool) {
	if forecast.IsZero() {
		return decimal.Zero, false
	}
	return actual.Mul(hundred).Div(forecast).RoundBank(1), true
}

// Overspent reports whether actual exceeds forecast.
func Overspent(actual, forecast decimal.Decimal) bool {
	return Variance(actual, forecast).IsPositive()
}
