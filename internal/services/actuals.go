package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// Actuals are the month's sums for one owner. Transfers are never counted.
type Actuals struct {
	ByCategory map[string]decimal.Decimal // expense only, keyed by category id or core.UncategorizedKey
	Income     decimal.Decimal
	Expense    decimal.Decimal
}

// ActualsAggregator sums transactions per owner and month.
type ActualsAggregator struct {
	repo *storage.Repository
}

func NewActualsAggregator(repo *storage.Repository) *ActualsAggregator {
	return &ActualsAggregator{repo: repo}
}

// Month reads the owner's transactions for the month once and computes
// every sum. Matching uses the stored month key.
func (a *ActualsAggregator) Month(ctx context.Context, owner string, year, month int) (Actuals, error) {
	txns, err := a.repo.TransactionsByOwner(ctx, owner, core.MonthKey(year, month))
	if err != nil {
		return Actuals{}, fmt.Errorf("load transactions: %w", err)
	}
	return Aggregate(txns), nil
}

// Aggregate computes the sums over txns without filtering by month.
func Aggregate(txns []core.Transaction) Actuals {
	out := Actuals{
		ByCategory: map[string]decimal.Decimal{},
		Income:     decimal.Zero,
		Expense:    decimal.Zero,
	}
	for _, t := range txns {
		switch t.Direction {
		case core.Income:
			out.Income = out.Income.Add(t.Amount)
		case core.Expense:
			out.Expense = out.Expense.Add(t.Amount)
			key := t.CategoryID
			if key == "" {
				key = core.UncategorizedKey
			}
			out.ByCategory[key] = out.ByCategory[key].Add(t.Amount)
		}
	}
	return out
}

// ExpenseByCategory sums expense transactions per category. Uncategorized
// expenses are under core.UncategorizedKey.
func (a *ActualsAggregator) ExpenseByCategory(ctx context.Context, owner string, year, month int) (map[string]decimal.Decimal, error) {
	act, err := a.Month(ctx, owner, year, month)
	if err != nil {
		return nil, err
	}
	return act.ByCategory, nil
}

// IncomeTotal sums income transactions.
func (a *ActualsAggregator) IncomeTotal(ctx context.Context, owner string, year, month int) (decimal.Decimal, error) {
	act, err := a.Month(ctx, owner, year, month)
	if err != nil {
		return decimal.Zero, err
	}
	return act.Income, nil
}

// ExpenseTotal sums expense transactions.
func (a *ActualsAggregator) ExpenseTotal(ctx context.Context, owner string, year, month int) (decimal.Decimal, error) {
	act, err := a.Month(ctx, owner, year, month)
	if err != nil {
		return decimal.Zero, err
	}
	return act.Expense, nil
}
