package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// TransactionService handles manual transaction entry and listings.
type TransactionService struct {
	repo     *storage.Repository
	taxonomy *TaxonomyService
	now      func() time.Time
}

func NewTransactionService(repo *storage.Repository, taxonomy *TaxonomyService) *TransactionService {
	return &TransactionService{repo: repo, taxonomy: taxonomy, now: time.Now}
}

// Create validates and stores a manually entered transaction. The month key
// is derived from the date.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = ""
	if err := s.prepare(ctx, &t); err != nil {
		return core.Transaction{}, err
	}
	now := s.now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	id, err := s.repo.SaveTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	t.ID = id
	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", id,
		"owner_id", t.OwnerID,
		"month", t.Month,
		"direction", t.Direction,
		"amount", core.FormatAmount(t.Amount))
	return t, nil
}

// Update edits an owned transaction. The external id is kept.
func (s *TransactionService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	existing, ok, err := s.repo.GetTransaction(ctx, t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if !ok || existing.OwnerID != t.OwnerID {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
	}
	if err := s.prepare(ctx, &t); err != nil {
		return core.Transaction{}, err
	}
	t.ExternalID = existing.ExternalID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.now().UTC()
	if _, err := s.repo.SaveTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction updated", "transaction_id", t.ID, "owner_id", t.OwnerID)
	return t, nil
}

func (s *TransactionService) prepare(ctx context.Context, t *core.Transaction) error {
	t.Description = strings.TrimSpace(t.Description)
	if t.Description == "" {
		return &core.ValidationError{Field: "description", Message: "description is required", Err: core.ErrEmptyDescription}
	}
	if len([]rune(t.Description)) > core.MaxDescriptionLen {
		return &core.ValidationError{Field: "description", Message: "description too long (max 500 characters)", Err: core.ErrTooLong}
	}
	if t.Direction == "" {
		t.Direction = core.Expense
	}
	t.Amount = core.Round2(t.Amount)
	t.Month = t.Date.MonthKey()
	t.SourceAccount = strings.TrimSpace(t.SourceAccount)
	if err := t.Validate(); err != nil {
		return err
	}
	if t.CategoryID == "" {
		return nil
	}
	tax, err := s.taxonomy.LoadTaxonomy(ctx)
	if err != nil {
		return err
	}
	if _, ok := tax.Category(t.CategoryID); !ok {
		return &core.ValidationError{Field: "category_id", Message: "unknown category", Err: core.ErrUnknownCategory}
	}
	return nil
}

// Get returns an owned transaction, or false.
func (s *TransactionService) Get(ctx context.Context, owner, id string) (core.Transaction, bool, error) {
	t, ok, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("get transaction: %w", err)
	}
	if !ok || t.OwnerID != owner {
		return core.Transaction{}, false, nil
	}
	return t, true, nil
}

// List returns the owner's transactions newest first. An empty monthKey
// lists every month.
func (s *TransactionService) List(ctx context.Context, owner, monthKey string) ([]core.Transaction, error) {
	if monthKey != "" {
		if _, _, err := core.ParseMonthKey(monthKey); err != nil {
			return nil, &core.ValidationError{Field: "month", Message: "month must be YYYY-MM", Err: err}
		}
	}
	out, err := s.repo.TransactionsByOwner(ctx, owner, monthKey)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// ExpenseInquiry lists expense transactions only, with their total.
type ExpenseInquiry struct {
	Transactions []core.Transaction
	Total        decimal.Decimal
}

func (s *TransactionService) Expenses(ctx context.Context, owner, monthKey string) (ExpenseInquiry, error) {
	txns, err := s.List(ctx, owner, monthKey)
	if err != nil {
		return ExpenseInquiry{}, err
	}
	inq := ExpenseInquiry{Total: decimal.Zero}
	for _, t := range txns {
		if t.Direction != core.Expense {
			continue
		}
		inq.Transactions = append(inq.Transactions, t)
		inq.Total = inq.Total.Add(t.Amount)
	}
	return inq, nil
}

// RecordMonths lists the months, newest first, that have active expense
// records from the companion app.
func (s *TransactionService) RecordMonths(ctx context.Context, owner string) ([]string, error) {
	records, err := s.repo.ExpenseRecordsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list expense records: %w", err)
	}
	seen := map[string]bool{}
	var out []string
	for _, r := range records {
		if r.Date.IsZero() || !r.Active() {
			continue
		}
		key := r.Date.MonthKey()
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}
