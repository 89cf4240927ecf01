package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

func TestGetOrCreateBudget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cat := f.category(t, "Groceries", f.group(t, "Food", 0), true)

	b, err := f.budgets.GetOrCreateBudget(ctx, "u1", cat, 2024, 6)
	if err != nil {
		t.Fatal(err)
	}
	if b.ID != storage.BudgetID("u1", cat, 2024, 6) || !b.Forecast.IsZero() {
		t.Fatalf("budget = %+v", b)
	}
	again, err := f.budgets.GetOrCreateBudget(ctx, "u1", cat, 2024, 6)
	if err != nil || again.ID != b.ID {
		t.Fatalf("second call = %+v, %v", again, err)
	}
	if n := f.store.Len(storage.Budgets); n != 1 {
		t.Fatalf("stored budgets = %d, want 1", n)
	}

	updated, err := f.budgets.SetForecast(ctx, "u1", cat, 2024, 6, d("250.456"))
	if err != nil || !updated.Forecast.Equal(d("250.46")) {
		t.Fatalf("SetForecast = %+v, %v", updated, err)
	}
	list, _ := f.budgets.ListBudgets(ctx, "u1", 2024, 6)
	if len(list) != 1 || !list[0].Forecast.Equal(d("250.46")) {
		t.Fatalf("list = %+v", list)
	}

	tests := []struct {
		name  string
		cat   string
		month int
		fc    decimal.Decimal
		want  error
	}{
		{"unknown category", "nope", 6, decimal.Zero, core.ErrUnknownCategory},
		{"bad month", cat, 0, decimal.Zero, core.ErrInvalidMonth},
		{"negative forecast", cat, 6, d("-1"), core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.budgets.SetForecast(ctx, "u1", tt.cat, 2024, tt.month, tt.fc); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSavingsOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.txn(t, "u1", core.NewDate(2024, 6, 1), "1000", core.Income, "")
	f.txn(t, "u1", core.NewDate(2024, 6, 2), "400", core.Expense, "")

	sv, err := f.budgets.GetOrCreateSavings(ctx, "u1", 2024, 6)
	if err != nil || sv.GoalStatus != core.GoalPending || sv.Actual.Valid {
		t.Fatalf("created savings = %+v, %v", sv, err)
	}

	list, err := f.budgets.ListSavings(ctx, "u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %+v, %v", list, err)
	}
	if !list[0].Derived.Equal(d("600")) || !list[0].Effective().Equal(d("600")) {
		t.Fatalf("derived = %s effective = %s", list[0].Derived, list[0].Effective())
	}

	if _, err := f.budgets.UpdateSavings(ctx, "u1", 2024, 6, SavingsUpdate{
		Target:     d("500"),
		Actual:     decimal.NewNullDecimal(d("750")),
		GoalStatus: core.GoalMet,
	}); err != nil {
		t.Fatal(err)
	}
	list, _ = f.budgets.ListSavings(ctx, "u1")
	if !list[0].Effective().Equal(d("750")) || !list[0].Derived.Equal(d("600")) || list[0].Savings.GoalStatus != core.GoalMet {
		t.Fatalf("after override = %+v", list[0])
	}

	if _, err := f.budgets.UpdateSavings(ctx, "u1", 2024, 6, SavingsUpdate{Target: d("500")}); err != nil {
		t.Fatal(err)
	}
	list, _ = f.budgets.ListSavings(ctx, "u1")
	if list[0].Savings.Actual.Valid || !list[0].Effective().Equal(d("600")) {
		t.Fatalf("override should be cleared, got %+v", list[0])
	}

	if _, err := f.budgets.UpdateSavings(ctx, "u1", 2024, 6, SavingsUpdate{Target: d("-1")}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("negative target err = %v", err)
	}
	if _, err := f.budgets.UpdateSavings(ctx, "u1", 2024, 6, SavingsUpdate{GoalStatus: "won"}); !errors.Is(err, core.ErrInvalidStatus) {
		t.Fatalf("bad goal status err = %v", err)
	}
}
