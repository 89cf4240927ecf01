package services

import (
	"context"

	"github.com/shopspring/decimal"
)

// SavingsReconciler derives monthly savings as income minus expenses minus
// commitment payments due in the month. It never reads or writes the
// manual override kept on the savings record.
type SavingsReconciler struct {
	actuals *ActualsAggregator
	engine  *AmortizationEngine
}

func NewSavingsReconciler(actuals *ActualsAggregator, engine *AmortizationEngine) *SavingsReconciler {
	return &SavingsReconciler{actuals: actuals, engine: engine}
}

// ActualSavings recomputes the derived savings for the month.
func (r *SavingsReconciler) ActualSavings(ctx context.Context, owner string, year, month int) (decimal.Decimal, error) {
	act, err := r.actuals.Month(ctx, owner, year, month)
	if err != nil {
		return decimal.Zero, err
	}
	due, err := r.engine.DueInMonth(ctx, owner, year, month)
	if err != nil {
		return decimal.Zero, err
	}
	return NetSavings(act.Income, act.Expense, due), nil
}

// NetSavings is income - expense - due.
func NetSavings(income, expense, due decimal.Decimal) decimal.Decimal {
	return income.Sub(expense).Sub(due)
}
