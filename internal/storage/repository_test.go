package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
	"budgeting/internal/docstore"
	"budgeting/internal/docstore/memory"
)

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string, string) (docstore.Document, bool, error) {
	return docstore.Document{}, false, f.err
}
func (f failingStore) Put(context.Context, string, string, docstore.Fields) (string, error) {
	return "", f.err
}
func (f failingStore) Delete(context.Context, string, string) error { return f.err }
func (f failingStore) Query(context.Context, string, []docstore.Filter, int) ([]docstore.Document, error) {
	return nil, f.err
}

func TestTransactionsByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.New())
	seed := []core.Transaction{
		{OwnerID: "u1", Date: core.NewDate(2024, 6, 2), Amount: decimal.NewFromInt(1), Direction: core.Expense},
		{OwnerID: "u1", Date: core.NewDate(2024, 6, 20), Amount: decimal.NewFromInt(2), Direction: core.Expense},
		{OwnerID: "u1", Date: core.NewDate(2024, 7, 1), Amount: decimal.NewFromInt(3), Direction: core.Income},
		{OwnerID: "u2", Date: core.NewDate(2024, 6, 5), Amount: decimal.NewFromInt(4), Direction: core.Expense},
	}
	for _, tx := range seed {
		if _, err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	june, err := repo.TransactionsByOwner(ctx, "u1", "2024-06")
	if err != nil {
		t.Fatal(err)
	}
	if len(june) != 2 || june[0].Date.Day() != 20 || june[1].Date.Day() != 2 {
		t.Fatalf("june = %+v", june)
	}
	all, err := repo.TransactionsByOwner(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Month != "2024-07" {
		t.Fatalf("all = %+v", all)
	}
}

func TestExistsByExternalID(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.New())
	if _, err := repo.SaveTransaction(ctx, core.Transaction{
		OwnerID: "u1", Date: core.NewDate(2024, 1, 1), Direction: core.Expense, ExternalID: "consumption:abc",
	}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		owner, ext string
		want       bool
	}{
		{"u1", "consumption:abc", true},
		{"u2", "consumption:abc", false},
		{"u1", "consumption:xyz", false},
		{"u1", "", false},
	}
	for _, tt := range tests {
		got, err := repo.ExistsByExternalID(ctx, tt.owner, tt.ext)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("ExistsByExternalID(%q, %q) = %v", tt.owner, tt.ext, got)
		}
	}
}

func TestBudgetDeterministicAndLegacyLookup(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := NewRepository(store)

	id, err := repo.SaveBudget(ctx, core.Budget{OwnerID: "u1", CategoryID: "c1", Year: 2024, Month: 6, Forecast: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatal(err)
	}
	if id != "u1:c1:2024-06" {
		t.Fatalf("budget id = %q", id)
	}
	if _, err := repo.SaveBudget(ctx, core.Budget{OwnerID: "u1", CategoryID: "c1", Year: 2024, Month: 6, Forecast: decimal.NewFromInt(150)}); err != nil {
		t.Fatal(err)
	}
	if n := store.Len(Budgets); n != 1 {
		t.Fatalf("expected one budget document, got %d", n)
	}

	// a document written with a generated id is still found
	if _, err := store.Put(ctx, Budgets, "legacy-1", docstore.Fields{
		"user_id": "u1", "category_id": "c2", "year": 2024, "month": 6, "forecast": "40",
	}); err != nil {
		t.Fatal(err)
	}
	b, ok, err := repo.FindBudget(ctx, "u1", "c2", 2024, 6)
	if err != nil || !ok {
		t.Fatalf("FindBudget legacy = ok=%v err=%v", ok, err)
	}
	if b.ID != "legacy-1" || !b.Forecast.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("legacy budget = %+v", b)
	}
	if _, ok, _ := repo.FindBudget(ctx, "u1", "c3", 2024, 6); ok {
		t.Fatal("unexpected budget for c3")
	}

	list, err := repo.BudgetsByOwner(ctx, "u1", 2024, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].CategoryID != "c1" || list[1].CategoryID != "c2" {
		t.Fatalf("budgets = %+v", list)
	}
}

func TestSavingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.New())
	for _, m := range []int{3, 11, 6} {
		s := core.Savings{OwnerID: "u1", Year: 2024, Month: m, GoalStatus: core.GoalPending}
		if m == 6 {
			s.Actual = decimal.NewNullDecimal(decimal.RequireFromString("99.90"))
		}
		if _, err := repo.SaveSavings(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	got, ok, err := repo.FindSavings(ctx, "u1", 2024, 6)
	if err != nil || !ok {
		t.Fatalf("FindSavings = ok=%v err=%v", ok, err)
	}
	if !got.Actual.Valid || got.Actual.Decimal.String() != "99.9" {
		t.Fatalf("actual = %+v", got.Actual)
	}
	list, err := repo.SavingsByOwner(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].Month != 11 || list[2].Month != 3 {
		t.Fatalf("savings order = %+v", list)
	}
	if list[0].Actual.Valid {
		t.Fatal("null actual must stay null")
	}
}

func TestLinesByCommitmentSorted(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.New())
	lines := []core.ScheduleLine{
		{CommitmentID: "c", DueDate: core.NewDate(2024, 3, 1), Sequence: 2},
		{CommitmentID: "c", DueDate: core.NewDate(2024, 1, 1), Sequence: 1},
		{CommitmentID: "c", DueDate: core.NewDate(2024, 1, 1), Sequence: 0},
		{CommitmentID: "c", Sequence: 9},
		{CommitmentID: "other", DueDate: core.NewDate(2020, 1, 1)},
	}
	for _, l := range lines {
		if _, err := repo.SaveLine(ctx, l); err != nil {
			t.Fatal(err)
		}
	}
	got, err := repo.LinesByCommitment(ctx, "c")
	if err != nil {
		t.Fatal(err)
	}
	wantSeq := []int{9, 0, 1, 2}
	if len(got) != len(wantSeq) {
		t.Fatalf("got %d lines", len(got))
	}
	for i, l := range got {
		if l.Sequence != wantSeq[i] {
			t.Errorf("line %d sequence = %d, want %d", i, l.Sequence, wantSeq[i])
		}
	}
}

func TestGlobalLinksUseNullOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.New())
	if _, err := repo.SaveLink(ctx, core.MerchantLink{Keyword: "starbucks", CategoryID: "coffee"}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SaveLink(ctx, core.MerchantLink{Keyword: "shell", CategoryID: "fuel", OwnerID: "u1"}); err != nil {
		t.Fatal(err)
	}
	global, err := repo.LinksByOwner(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(global) != 1 || global[0].Keyword != "starbucks" {
		t.Fatalf("global = %+v", global)
	}
	own, err := repo.LinksByOwner(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(own) != 1 || own[0].CategoryID != "fuel" {
		t.Fatalf("owner links = %+v", own)
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(failingStore{err: docstore.ErrUnavailable})

	if _, err := repo.TransactionsByOwner(ctx, "u1", "2024-06"); !errors.Is(err, docstore.ErrUnavailable) {
		t.Errorf("TransactionsByOwner err = %v", err)
	}
	if _, err := repo.ExistsByExternalID(ctx, "u1", "x"); !errors.Is(err, docstore.ErrUnavailable) {
		t.Errorf("ExistsByExternalID err = %v", err)
	}
	if _, _, err := repo.FindBudget(ctx, "u1", "c", 2024, 1); !errors.Is(err, docstore.ErrUnavailable) {
		t.Errorf("FindBudget err = %v", err)
	}
	if _, err := repo.SaveCommitment(ctx, core.Commitment{}); !errors.Is(err, docstore.ErrUnavailable) {
		t.Errorf("SaveCommitment err = %v", err)
	}
}

func TestCompositeIDsKeepOwnersApart(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.New())

	if a, b := BudgetID("a:b", "c", 2024, 6), BudgetID("a", "b:c", 2024, 6); a == b {
		t.Fatalf("budget ids collide: %q", a)
	}
	if a, b := SavingsID("a:2024-06", 2024, 6), SavingsID("a", 2024, 6); a == b {
		t.Fatalf("savings ids collide: %q", a)
	}

	if _, err := repo.SaveBudget(ctx, core.Budget{OwnerID: "a", CategoryID: "b:c", Year: 2024, Month: 6, Forecast: decimal.NewFromInt(90)}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := repo.FindBudget(ctx, "a:b", "c", 2024, 6); err != nil || ok {
		t.Fatalf("FindBudget for another owner = ok=%v err=%v", ok, err)
	}

	// a document planted under another owner's deterministic id is not returned
	store := memory.New()
	repo = NewRepository(store)
	if _, err := store.Put(ctx, Savings, SavingsID("u1", 2024, 6), docstore.Fields{
		"user_id": "u2", "year": 2024, "month": 6, "target": "10",
	}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := repo.FindSavings(ctx, "u1", 2024, 6); err != nil || ok {
		t.Fatalf("FindSavings = ok=%v err=%v", ok, err)
	}
}

func TestSaveLineDeterministicID(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := NewRepository(store)
	line := core.ScheduleLine{CommitmentID: "c1", DueDate: core.NewDate(2024, 6, 1), Sequence: 2, Amount: decimal.NewFromInt(100)}

	for i := 0; i < 2; i++ {
		id, err := repo.SaveLine(ctx, line)
		if err != nil {
			t.Fatal(err)
		}
		if id != "c1:2" {
			t.Fatalf("line id = %q", id)
		}
	}
	if n := store.Len(ScheduleLines); n != 1 {
		t.Fatalf("stored %d lines, want 1", n)
	}
}
