package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

const topOverspends = 5

// ReportService builds the monthly budget versus actuals report.
type ReportService struct {
	repo     *storage.Repository
	taxonomy *TaxonomyService
	actuals  *ActualsAggregator
}

func NewReportService(repo *storage.Repository, taxonomy *TaxonomyService, actuals *ActualsAggregator) *ReportService {
	return &ReportService{repo: repo, taxonomy: taxonomy, actuals: actuals}
}

// MonthlyReport has one row per budgeted reportable category, followed by
// rows for reportable categories that have spending but no budget.
// Uncategorized spending only shows up in ExpenseTotal.
func (s *ReportService) MonthlyReport(ctx context.Context, owner string, year, month int) (core.MonthlyReport, error) {
	if !core.ValidMonth(month) {
		return core.MonthlyReport{}, &core.ValidationError{Field: "month", Message: "month must be 1-12", Err: core.ErrInvalidMonth}
	}

	tax, err := s.taxonomy.LoadTaxonomy(ctx)
	if err != nil {
		return core.MonthlyReport{}, err
	}
	budgets, err := s.repo.BudgetsByOwner(ctx, owner, year, month)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("load budgets: %w", err)
	}
	act, err := s.actuals.Month(ctx, owner, year, month)
	if err != nil {
		return core.MonthlyReport{}, err
	}

	rep := BuildReport(tax, budgets, act)
	rep.OwnerID, rep.Year, rep.Month = owner, year, month

	slog.InfoContext(ctx, "Built monthly report",
		"owner_id", owner,
		"year", year,
		"month", month,
		"rows", len(rep.Rows),
		"total_actual", rep.TotalActual.StringFixed(2))
	return rep, nil
}

// BuildReport assembles the report from already loaded data.
func BuildReport(tax Taxonomy, budgets []core.Budget, act Actuals) core.MonthlyReport {
	var rows []core.ReportRow
	seen := map[string]bool{}

	for _, b := range budgets {
		cat, ok := tax.Category(b.CategoryID)
		if !ok || !cat.IncludeInReports || seen[b.CategoryID] {
			continue
		}
		seen[b.CategoryID] = true
		actual := act.ByCategory[b.CategoryID]
		row := core.ReportRow{
			CategoryID: cat.ID,
			Category:   tax.DisplayName(cat.ID),
			GroupName:  cat.GroupName,
			Forecast:   b.Forecast,
			Actual:     actual,
			Variance:   core.Variance(actual, b.Forecast),
			Budgeted:   true,
		}
		if pct, ok := core.UtilizationPct(actual, b.Forecast); ok {
			row.Utilization = decimal.NewNullDecimal(pct)
		}
		rows = append(rows, row)
	}

	unbudgeted := make([]string, 0, len(act.ByCategory))
	for id := range act.ByCategory {
		if id == core.UncategorizedKey || seen[id] {
			continue
		}
		unbudgeted = append(unbudgeted, id)
	}
	sort.Strings(unbudgeted)
	for _, id := range unbudgeted {
		cat, ok := tax.Category(id)
		if !ok || !cat.IncludeInReports {
			continue
		}
		actual := act.ByCategory[id]
		rows = append(rows, core.ReportRow{
			CategoryID: cat.ID,
			Category:   tax.DisplayName(cat.ID),
			GroupName:  cat.GroupName,
			Forecast:   decimal.Zero,
			Actual:     actual,
			Variance:   actual,
		})
	}

	rep := core.MonthlyReport{
		Rows:          rows,
		TotalForecast: decimal.Zero,
		TotalActual:   decimal.Zero,
		IncomeTotal:   act.Income,
		ExpenseTotal:  act.Expense,
	}
	for i, r := range rows {
		rep.TotalForecast = rep.TotalForecast.Add(r.Forecast)
		rep.TotalActual = rep.TotalActual.Add(r.Actual)
		if rep.Highest == nil || r.Actual.GreaterThan(rep.Highest.Actual) {
			rep.Highest = &rows[i]
		}
	}
	rep.Variance = core.Variance(rep.TotalActual, rep.TotalForecast)
	if pct, ok := core.UtilizationPct(rep.TotalActual, rep.TotalForecast); ok {
		rep.Utilization = decimal.NewNullDecimal(pct)
	}

	for _, r := range rows {
		if r.Variance.IsPositive() {
			rep.TopOverspends = append(rep.TopOverspends, r)
		}
	}
	sort.SliceStable(rep.TopOverspends, func(i, j int) bool {
		return rep.TopOverspends[i].Variance.GreaterThan(rep.TopOverspends[j].Variance)
	})
	if len(rep.TopOverspends) > topOverspends {
		rep.TopOverspends = rep.TopOverspends[:topOverspends]
	}
	return rep
}
