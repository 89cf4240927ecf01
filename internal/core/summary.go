package core

import "github.com/shopspring/decimal"

// UncategorizedKey is the bucket for expense transactions without a category.
const UncategorizedKey = "_none_"

// ReportRow compares forecast and actual for one category in a month.
type ReportRow struct {
	CategoryID  string
	Category    string // display name, prefixed with the group when it resolves
	GroupName   string
	Forecast    decimal.Decimal
	Actual      decimal.Decimal
	Variance    decimal.Decimal
	Utilization decimal.NullDecimal
	Budgeted    bool
}

// MonthlyReport is the budget vs actuals summary for a specific year+month.
type MonthlyReport struct {
	OwnerID       string
	Year          int
	Month         int // 1-12
	Rows          []ReportRow
	TotalForecast decimal.Decimal
	TotalActual   decimal.Decimal
	Variance      decimal.Decimal
	Utilization   decimal.NullDecimal
	Highest       *ReportRow
	TopOverspends []ReportRow
	IncomeTotal   decimal.Decimal
	ExpenseTotal  decimal.Decimal
}

// SavingsSummary pairs a savings record with the derived monthly savings.
type SavingsSummary struct {
	Savings Savings
	Derived decimal.Decimal
}

// Effective returns the manual override when present, else the derived value.
func (s SavingsSummary) Effective() decimal.Decimal {
	if s.Savings.Actual.Valid {
		return s.Savings.Actual.Decimal
	}
	return s.Derived
}

// CommitmentSummary pairs a commitment with its outstanding balance.
type CommitmentSummary struct {
	Commitment Commitment
	Remaining  decimal.Decimal
}

// ImportResult counts the outcome of an import or promotion run.
type ImportResult struct {
	Created int
	Skipped int
	Months  []string // month keys that received new transactions, ascending
}
