// Package storage maps budgeting entities onto docstore collections.
//
// The store gives no ordering guarantee; every list method sorts in memory.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"budgeting/internal/core"
	"budgeting/internal/docstore"
)

type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// idPart escapes the separator so distinct (owner, category) pairs can never
// join into the same composite id.
var idPart = strings.NewReplacer("%", "%25", ":", "%3A")

// BudgetID is the deterministic document id of the budget for a category
// and month, so concurrent get-or-create calls converge on one document.
func BudgetID(owner, categoryID string, year, month int) string {
	return idPart.Replace(owner) + ":" + idPart.Replace(categoryID) + ":" + core.MonthKey(year, month)
}

// SavingsID is the deterministic document id of a month's savings record.
func SavingsID(owner string, year, month int) string {
	return idPart.Replace(owner) + ":" + core.MonthKey(year, month)
}

// LineID is the deterministic document id of a schedule line. Generating the
// same schedule twice overwrites the lines instead of adding new ones.
func LineID(commitmentID string, sequence int) string {
	return idPart.Replace(commitmentID) + ":" + strconv.Itoa(sequence)
}

func (r *Repository) query(ctx context.Context, collection string, filters []docstore.Filter, limit int) ([]docstore.Document, error) {
	docs, err := r.store.Query(ctx, collection, filters, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return docs, nil
}

func (r *Repository) get(ctx context.Context, collection, id string) (docstore.Document, bool, error) {
	if id == "" {
		return docstore.Document{}, false, nil
	}
	doc, ok, err := r.store.Get(ctx, collection, id)
	if err != nil {
		return docstore.Document{}, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, ok, nil
}

func (r *Repository) put(ctx context.Context, collection, id string, fields docstore.Fields) (string, error) {
	id, err := r.store.Put(ctx, collection, id, fields)
	if err != nil {
		return "", fmt.Errorf("put %s: %w", collection, err)
	}
	return id, nil
}

func (r *Repository) delete(ctx context.Context, collection, id string) error {
	if err := r.store.Delete(ctx, collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Groups and categories

func (r *Repository) ListGroups(ctx context.Context) ([]core.Group, error) {
	docs, err := r.query(ctx, Groups, nil, 0)
	if err != nil {
		return nil, err
	}
	out := make([]core.Group, 0, len(docs))
	for _, d := range docs {
		out = append(out, decodeGroup(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *Repository) SaveGroup(ctx context.Context, g core.Group) (string, error) {
	return r.put(ctx, Groups, g.ID, encodeGroup(g))
}

// ListCategories returns categories without resolved group names.
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	docs, err := r.query(ctx, Categories, nil, 0)
	if err != nil {
		return nil, err
	}
	out := make([]core.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, decodeCategory(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *Repository) GetCategory(ctx context.Context, id string) (core.Category, bool, error) {
	doc, ok, err := r.get(ctx, Categories, id)
	if err != nil || !ok {
		return core.Category{}, ok, err
	}
	return decodeCategory(doc), true, nil
}

func (r *Repository) SaveCategory(ctx context.Context, c core.Category) (string, error) {
	return r.put(ctx, Categories, c.ID, encodeCategory(c))
}

// Transactions

// TransactionsByOwner lists the owner's transactions, newest first. An empty
// monthKey returns every month.
func (r *Repository) TransactionsByOwner(ctx context.Context, owner, monthKey string) ([]core.Transaction, error) {
	filters := docstore.Where(ownerField, owner)
	if monthKey != "" {
		filters = append(filters, docstore.Filter{Field: "month", Value: monthKey})
	}
	docs, err := r.query(ctx, Transactions, filters, 0)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, decodeTransaction(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, bool, error) {
	doc, ok, err := r.get(ctx, Transactions, id)
	if err != nil || !ok {
		return core.Transaction{}, ok, err
	}
	return decodeTransaction(doc), true, nil
}

func (r *Repository) SaveTransaction(ctx context.Context, t core.Transaction) (string, error) {
	return r.put(ctx, Transactions, t.ID, encodeTransaction(t))
}

// ExistsByExternalID reports whether owner already has a transaction with
// the external id. Empty ids never match.
func (r *Repository) ExistsByExternalID(ctx context.Context, owner, externalID string) (bool, error) {
	if strings.TrimSpace(externalID) == "" {
		return false, nil
	}
	docs, err := r.query(ctx, Transactions, docstore.Where(ownerField, owner, "external_id", externalID), 1)
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// Merchant links

// LinksByOwner returns the owner's links, or the global links when owner is empty.
func (r *Repository) LinksByOwner(ctx context.Context, owner string) ([]core.MerchantLink, error) {
	docs, err := r.query(ctx, MerchantLinks, docstore.Where(ownerField, optional(owner)), 0)
	if err != nil {
		return nil, err
	}
	out := make([]core.MerchantLink, 0, len(docs))
	for _, d := range docs {
		out = append(out, decodeLink(d))
	}
	return out, nil
}

func (r *Repository) GetLink(ctx context.Context, id string) (core.MerchantLink, bool, error) {
	doc, ok, err := r.get(ctx, MerchantLinks, id)
	if err != nil || !ok {
		return core.MerchantLink{}, ok, err
	}
	return decodeLink(doc), true, nil
}

func (r *Repository) SaveLink(ctx context.Context, l core.MerchantLink) (string, error) {
	return r.put(ctx, MerchantLinks, l.ID, encodeLink(l))
}

func (r *Repository) DeleteLink(ctx context.Context, id string) error {
	return r.delete(ctx, MerchantLinks, id)
}

// Budgets

// FindBudget looks the budget up by its deterministic id, then by fields for
// documents written before deterministic ids were used.
func (r *Repository) FindBudget(ctx context.Context, owner, categoryID string, year, month int) (core.Budget, bool, error) {
	doc, ok, err := r.get(ctx, Budgets, BudgetID(owner, categoryID, year, month))
	if err != nil {
		return core.Budget{}, false, err
	}
	if ok {
		if b := decodeBudget(doc); b.OwnerID == owner && b.CategoryID == categoryID {
			return b, true, nil
		}
	}
	docs, err := r.query(ctx, Budgets,
		docstore.Where(ownerField, owner, "category_id", categoryID, "year", year, "month", month), 1)
	if err != nil || len(docs) == 0 {
		return core.Budget{}, false, err
	}
	return decodeBudget(docs[0]), true, nil
}

// SaveBudget writes b, assigning the deterministic id when b has none.
func (r *Repository) SaveBudget(ctx context.Context, b core.Budget) (string, error) {
	id := b.ID
	if id == "" {
		id = BudgetID(b.OwnerID, b.CategoryID, b.Year, b.Month)
	}
	return r.put(ctx, Budgets, id, encodeBudget(b))
}

// BudgetsByOwner lists budgets sorted by (year, month, category). year and
// month narrow the result when non-zero.
func (r *Repository) BudgetsByOwner(ctx context.Context, owner string, year, month int) ([]core.Budget, error) {
	filters := docstore.Where(ownerField, owner)
	if year != 0 {
		filters = append(filters, docstore.Filter{Field: "year", Value: year})
	}
	if month != 0 {
		filters = append(filters, docstore.Filter{Field: "month", Value: month})
	}
	docs, err := r.query(ctx, Budgets, filters, 0)
	if err != nil {
		return nil, err
	}
	out := make([]core.Budget, 0, len(docs))
	for _, d := range docs {
		out = append(out, decodeBudget(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.CategoryID < b.CategoryID
	})
	return out, nil
}

// Savings

func (r *Repository) FindSavings(ctx context.Context, owner string, year, month int) (core.Savings, bool, error) {
	doc, ok, err := r.get(ctx, Savings, SavingsID(owner, year, month))
	if err != nil {
		return core.Savings{}, false, err
	}
	if ok {
		if sav := decodeSavings(doc); sav.OwnerID == owner {
			return sav, true, nil
		}
	}
	docs, err := r.query(ctx, Savings, docstore.Where(ownerField, owner, "year", year, "month", month), 1)
	if err != nil || len(docs) == 0 {
		return core.Savings{}, false, err
	}
	return decodeSavings(docs[0]), true, nil
}

func (r *Repository) SaveSavings(ctx context.Context, s core.Savings) (string, error) {
	id := s.ID
	if id == "" {
		id = SavingsID(s.OwnerID, s.Year, s.Month)
	}
	return r.put(ctx, Savings, id, encodeSavings(s))
}

// SavingsByOwner lists savings records newest month first.
func (r *Repository) SavingsByOwner(ctx context.Context, owner string) ([]core.Savings, error) {
	docs, err := r.query(ctx, Savings, docstore.Where(ownerField, owner), 0)
	if err != nil {
		return nil, err
	}
	out := make([]core.Savings, 0, len(docs))
	for _, d := range docs {
		out = append(out, decodeSavings(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

// Commitments and schedule lines

func (r *Repository) CommitmentsByOwner(ctx context.Context, owner string) ([]core.Commitment, error) {
	docs, err := r.query(ctx, Commitments, docstore.Where(ownerField, owner), 0)
	if err != nil {
		return nil, err
	}
	out := make([]core.Commitment, 0, len(docs))
	for _, d := range docs {
		out = append(out, decodeCommitment(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate.Time) {
			return out[i].StartDate.Before(out[j].StartDate.Time)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// AllCommitments lists commitments of every owner in storage order.
// limit <= 0 means no limit.
func (r *Repository) AllCommitments(ctx context.Context, limit int) ([]core.Commitment, error) {
	docs, err := r.query(ctx, Commitments, nil, limit)
	if err != nil {
		return nil, err
	}
	out := make([]core.Commitment, 0, len(docs))
	for _, d := range docs {
		out = append(out, decodeCommitment(d))
	}
	return out, nil
}

func (r *Repository) GetCommitment(ctx context.Context, id string) (core.Commitment, bool, error) {
	doc, ok, err := r.get(ctx, Commitments, id)
	if err != nil || !ok {
		return core.Commitment{}, ok, err
	}
	return decodeCommitment(doc), true, nil
}

func (r *Repository) SaveCommitment(ctx context.Context, c core.Commitment) (string, error) {
	return r.put(ctx, Commitments, c.ID, encodeCommitment(c))
}

// LinesByCommitment returns schedule lines ordered by due date then
// sequence. Lines without a due date sort as 1970-01-01.
func (r *Repository) LinesByCommitment(ctx context.Context, commitmentID string) ([]core.ScheduleLine, error) {
	docs, err := r.query(ctx, ScheduleLines, docstore.Where("commitment_id", commitmentID), 0)
	if err != nil {
		return nil, err
	}
	out := make([]core.ScheduleLine, 0, len(docs))
	for _, d := range docs {
		out = append(out, decodeLine(d))
	}
	SortLines(out)
	return out, nil
}

// SortLines orders lines by (due date, sequence).
func SortLines(lines []core.ScheduleLine) {
	epoch := core.NewDate(1970, 1, 1)
	due := func(l core.ScheduleLine) core.Date {
		if l.DueDate.IsZero() {
			return epoch
		}
		return l.DueDate
	}
	sort.SliceStable(lines, func(i, j int) bool {
		di, dj := due(lines[i]), due(lines[j])
		if !di.Equal(dj.Time) {
			return di.Before(dj.Time)
		}
		return lines[i].Sequence < lines[j].Sequence
	})
}

func (r *Repository) GetLine(ctx context.Context, id string) (core.ScheduleLine, bool, error) {
	doc, ok, err := r.get(ctx, ScheduleLines, id)
	if err != nil || !ok {
		return core.ScheduleLine{}, ok, err
	}
	return decodeLine(doc), true, nil
}

// SaveLine writes l, assigning LineID when l has no id.
func (r *Repository) SaveLine(ctx context.Context, l core.ScheduleLine) (string, error) {
	id := l.ID
	if id == "" && l.CommitmentID != "" {
		id = LineID(l.CommitmentID, l.Sequence)
	}
	return r.put(ctx, ScheduleLines, id, encodeLine(l))
}

func (r *Repository) DeleteLine(ctx context.Context, id string) error {
	return r.delete(ctx, ScheduleLines, id)
}

// Financial standings

func (r *Repository) SaveStanding(ctx context.Context, f core.FinancialStanding) (string, error) {
	return r.put(ctx, FinancialStandings, f.ID, encodeStanding(f))
}

// StandingsByOwner lists snapshots newest first.
func (r *Repository) StandingsByOwner(ctx context.Context, owner string) ([]core.FinancialStanding, error) {
	docs, err := r.query(ctx, FinancialStandings, docstore.Where(ownerField, owner), 0)
	if err != nil {
		return nil, err
	}
	out := make([]core.FinancialStanding, 0, len(docs))
	for _, d := range docs {
		out = append(out, decodeStanding(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SnapshotDate.After(out[j].SnapshotDate.Time)
	})
	return out, nil
}

// External expense records

func (r *Repository) GetExpenseRecord(ctx context.Context, id string) (core.ExpenseRecord, bool, error) {
	doc, ok, err := r.get(ctx, ExpenseRecords, id)
	if err != nil || !ok {
		return core.ExpenseRecord{}, ok, err
	}
	return decodeExpenseRecord(doc), true, nil
}

// ExpenseRecordsByOwner lists the records created by owner, oldest first.
func (r *Repository) ExpenseRecordsByOwner(ctx context.Context, owner string) ([]core.ExpenseRecord, error) {
	docs, err := r.query(ctx, ExpenseRecords, docstore.Where(expenseRecordsOwner, owner), 0)
	if err != nil {
		return nil, err
	}
	out := make([]core.ExpenseRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, decodeExpenseRecord(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out, nil
}

// SaveExpenseRecord is used by seeding tools and tests; the records are
// normally written by the companion expenses app.
func (r *Repository) SaveExpenseRecord(ctx context.Context, e core.ExpenseRecord) (string, error) {
	return r.put(ctx, ExpenseRecords, e.ID, encodeExpenseRecord(e))
}
