package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
)

func TestMonthlyReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.group(t, "Food", 0)
	groceries := f.category(t, "Groceries", food, true)
	restaurants := f.category(t, "Restaurants", food, true)
	internal := f.category(t, "Internal", food, false)
	fun := f.category(t, "Fun", "", true)

	for cat, forecast := range map[string]string{groceries: "400", restaurants: "200", internal: "100"} {
		if _, err := f.budgets.SetForecast(ctx, "u1", cat, 2024, 6, d(forecast)); err != nil {
			t.Fatal(err)
		}
	}

	june := core.NewDate(2024, 6, 10)
	f.txn(t, "u1", june, "450", core.Expense, groceries)
	f.txn(t, "u1", june, "100", core.Expense, restaurants)
	f.txn(t, "u1", june, "70", core.Expense, internal)
	f.txn(t, "u1", june, "30", core.Expense, fun)
	f.txn(t, "u1", june, "20", core.Expense, "")
	f.txn(t, "u1", june, "1000", core.Income, "")
	f.txn(t, "u1", june, "500", core.Transfer, groceries)
	f.txn(t, "u1", core.NewDate(2024, 7, 1), "999", core.Expense, groceries)
	f.txn(t, "u2", june, "999", core.Expense, groceries)

	rep, err := f.reports.MonthlyReport(ctx, "u1", 2024, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Rows) != 3 {
		t.Fatalf("rows = %+v", rep.Rows)
	}
	rows := map[string]core.ReportRow{}
	for _, r := range rep.Rows {
		rows[r.CategoryID] = r
	}

	g := rows[groceries]
	if g.Category != "Food — Groceries" || !g.Variance.Equal(d("50")) || !g.Utilization.Decimal.Equal(d("112.5")) || !g.Budgeted {
		t.Errorf("groceries row = %+v", g)
	}
	r := rows[restaurants]
	if !r.Variance.Equal(d("-100")) || !r.Utilization.Decimal.Equal(d("50")) {
		t.Errorf("restaurants row = %+v", r)
	}
	if _, ok := rows[internal]; ok {
		t.Error("non-reportable category should be excluded")
	}
	fr := rows[fun]
	if fr.Budgeted || !fr.Forecast.IsZero() || !fr.Variance.Equal(d("30")) || fr.Utilization.Valid || fr.Category != "Fun" {
		t.Errorf("unbudgeted row = %+v", fr)
	}
	if rep.Rows[2].CategoryID != fun {
		t.Errorf("unbudgeted rows should come last, got %+v", rep.Rows)
	}

	if !rep.TotalForecast.Equal(d("600")) || !rep.TotalActual.Equal(d("580")) || !rep.Variance.Equal(d("-20")) {
		t.Errorf("totals = %s %s %s", rep.TotalForecast, rep.TotalActual, rep.Variance)
	}
	if !rep.Utilization.Valid || !rep.Utilization.Decimal.Equal(d("96.7")) {
		t.Errorf("utilization = %+v", rep.Utilization)
	}
	if rep.Highest == nil || rep.Highest.CategoryID != groceries {
		t.Errorf("highest = %+v", rep.Highest)
	}
	if len(rep.TopOverspends) != 2 || rep.TopOverspends[0].CategoryID != groceries || rep.TopOverspends[1].CategoryID != fun {
		t.Errorf("top overspends = %+v", rep.TopOverspends)
	}
	if !rep.IncomeTotal.Equal(d("1000")) || !rep.ExpenseTotal.Equal(d("670")) {
		t.Errorf("income %s expense %s", rep.IncomeTotal, rep.ExpenseTotal)
	}
}

func TestMonthlyReportEmpty(t *testing.T) {
	f := newFixture(t)
	rep, err := f.reports.MonthlyReport(context.Background(), "u1", 2024, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Rows) != 0 || rep.Highest != nil || rep.Utilization.Valid || !rep.TotalActual.IsZero() {
		t.Fatalf("empty report = %+v", rep)
	}
	if _, err := f.reports.MonthlyReport(context.Background(), "u1", 2024, 13); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("bad month err = %v", err)
	}
}

func TestBuildReportTopOverspendsCapped(t *testing.T) {
	tax := Taxonomy{ByID: map[string]core.Category{}}
	act := Actuals{ByCategory: map[string]decimal.Decimal{}}
	var budgets []core.Budget
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		tax.ByID[id] = core.Category{ID: id, Name: id, IncludeInReports: true}
		budgets = append(budgets, core.Budget{CategoryID: id, Forecast: d("10")})
		act.ByCategory[id] = decimal.NewFromInt(int64(11 + i))
	}
	budgets = append(budgets, core.Budget{CategoryID: "a", Forecast: d("999")})

	rep := BuildReport(tax, budgets, act)
	if len(rep.Rows) != 7 {
		t.Fatalf("duplicate budget rows should be dropped, got %d rows", len(rep.Rows))
	}
	if len(rep.TopOverspends) != 5 || rep.TopOverspends[0].CategoryID != "g" || rep.TopOverspends[4].CategoryID != "c" {
		t.Fatalf("top overspends = %+v", rep.TopOverspends)
	}
	if rep.Highest.CategoryID != "g" {
		t.Fatalf("highest = %s", rep.Highest.CategoryID)
	}
}
