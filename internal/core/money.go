// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals and are stored with two decimal places.
// Binary floating point is never used for money.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a non-negative decimal amount entered on a form.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
// The value is rounded half-up to cents.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return Round2(d), nil
}

// ParseSignedAmount parses a statement amount such as "-1,234.50".
// Commas are thousands separators here and are dropped.
func ParseSignedAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Round2 rounds to the canonical two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatAmount renders the canonical storage form, e.g. "12.50".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Sum adds amounts starting from zero.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// ExchangeRates converts foreign amounts into the base currency.
// Rates[c] is the value of one unit of c expressed in Base.
type ExchangeRates struct {
	Base  string
	Rates map[string]decimal.Decimal
}

// ToBase converts amount from currency into the base currency.
// The bool is false when no rate is known; the amount is then returned as-is.
func (r ExchangeRates) ToBase(amount decimal.Decimal, currency string) (decimal.Decimal, bool) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || strings.EqualFold(currency, r.Base) {
		return amount, true
	}
	rate, ok := r.Rates[currency]
	if !ok {
		return amount, false
	}
	return Round2(amount.Mul(rate)), true
}
