package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// BudgetService edits monthly budgets and savings records.
//
// Budgets and savings are created lazily on first access. Their document ids
// are derived from owner, category and month so two concurrent first edits
// write the same document instead of creating duplicates.
type BudgetService struct {
	repo       *storage.Repository
	taxonomy   *TaxonomyService
	reconciler *SavingsReconciler
}

func NewBudgetService(repo *storage.Repository, taxonomy *TaxonomyService, reconciler *SavingsReconciler) *BudgetService {
	return &BudgetService{repo: repo, taxonomy: taxonomy, reconciler: reconciler}
}

// GetOrCreateBudget returns the budget, creating it with a zero forecast.
func (s *BudgetService) GetOrCreateBudget(ctx context.Context, owner, categoryID string, year, month int) (core.Budget, error) {
	probe := core.Budget{OwnerID: owner, CategoryID: categoryID, Year: year, Month: month}
	if err := probe.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.requireCategory(ctx, categoryID); err != nil {
		return core.Budget{}, err
	}

	b, ok, err := s.repo.FindBudget(ctx, owner, categoryID, year, month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("find budget: %w", err)
	}
	if ok {
		return b, nil
	}

	probe.Forecast = decimal.Zero
	id, err := s.repo.SaveBudget(ctx, probe)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	probe.ID = id
	slog.InfoContext(ctx, "Budget created",
		"owner_id", owner,
		"category_id", categoryID,
		"year", year,
		"month", month)
	return probe, nil
}

// SetForecast stores a new forecast, creating the budget when missing.
func (s *BudgetService) SetForecast(ctx context.Context, owner, categoryID string, year, month int, forecast decimal.Decimal) (core.Budget, error) {
	b, err := s.GetOrCreateBudget(ctx, owner, categoryID, year, month)
	if err != nil {
		return core.Budget{}, err
	}
	b.Forecast = core.Round2(forecast)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if _, err := s.repo.SaveBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	return b, nil
}

// ListBudgets lists the owner's budgets sorted by year, month and category.
// Zero year or month lists every period.
func (s *BudgetService) ListBudgets(ctx context.Context, owner string, year, month int) ([]core.Budget, error) {
	budgets, err := s.repo.BudgetsByOwner(ctx, owner, year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// GetOrCreateSavings returns the month's savings record, creating a pending
// one with a zero target when missing.
func (s *BudgetService) GetOrCreateSavings(ctx context.Context, owner string, year, month int) (core.Savings, error) {
	probe := core.Savings{OwnerID: owner, Year: year, Month: month, GoalStatus: core.GoalPending, Target: decimal.Zero}
	if err := probe.Validate(); err != nil {
		return core.Savings{}, err
	}
	sv, ok, err := s.repo.FindSavings(ctx, owner, year, month)
	if err != nil {
		return core.Savings{}, fmt.Errorf("find savings: %w", err)
	}
	if ok {
		return sv, nil
	}
	id, err := s.repo.SaveSavings(ctx, probe)
	if err != nil {
		return core.Savings{}, fmt.Errorf("create savings: %w", err)
	}
	probe.ID = id
	return probe, nil
}

// SavingsUpdate carries the editable savings fields. A null Actual clears
// the manual override.
type SavingsUpdate struct {
	Target     decimal.Decimal
	Actual     decimal.NullDecimal
	GoalStatus core.GoalStatus
}

func (s *BudgetService) UpdateSavings(ctx context.Context, owner string, year, month int, upd SavingsUpdate) (core.Savings, error) {
	if upd.Target.IsNegative() {
		return core.Savings{}, &core.ValidationError{Field: "target", Message: "target cannot be negative", Err: core.ErrInvalidAmount}
	}
	sv, err := s.GetOrCreateSavings(ctx, owner, year, month)
	if err != nil {
		return core.Savings{}, err
	}
	sv.Target = core.Round2(upd.Target)
	sv.Actual = upd.Actual
	if sv.Actual.Valid {
		sv.Actual.Decimal = core.Round2(sv.Actual.Decimal)
	}
	if upd.GoalStatus != "" {
		sv.GoalStatus = upd.GoalStatus
	}
	if err := sv.Validate(); err != nil {
		return core.Savings{}, err
	}
	if _, err := s.repo.SaveSavings(ctx, sv); err != nil {
		return core.Savings{}, fmt.Errorf("save savings: %w", err)
	}
	slog.InfoContext(ctx, "Savings updated",
		"owner_id", owner,
		"year", year,
		"month", month,
		"override", sv.Actual.Valid,
		"goal_status", sv.GoalStatus)
	return sv, nil
}

// ListSavings returns the owner's savings records, newest first, each with
// the derived value. The derived value is never written back.
func (s *BudgetService) ListSavings(ctx context.Context, owner string) ([]core.SavingsSummary, error) {
	records, err := s.repo.SavingsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list savings: %w", err)
	}
	out := make([]core.SavingsSummary, 0, len(records))
	for _, rec := range records {
		derived, err := s.reconciler.ActualSavings(ctx, owner, rec.Year, rec.Month)
		if err != nil {
			return nil, fmt.Errorf("derive savings %s: %w", core.MonthKey(rec.Year, rec.Month), err)
		}
		out = append(out, core.SavingsSummary{Savings: rec, Derived: derived})
	}
	return out, nil
}

func (s *BudgetService) requireCategory(ctx context.Context, id string) error {
	tax, err := s.taxonomy.LoadTaxonomy(ctx)
	if err != nil {
		return err
	}
	if _, ok := tax.Category(id); !ok {
		return &core.ValidationError{Field: "category_id", Message: "unknown category", Err: core.ErrUnknownCategory}
	}
	return nil
}
