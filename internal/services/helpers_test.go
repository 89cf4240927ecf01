package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
	"budgeting/internal/docstore"
	"budgeting/internal/docstore/memory"
	"budgeting/internal/storage"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store      *memory.Store
	repo       *storage.Repository
	taxonomy   *TaxonomyService
	categorize *Categorizer
	actuals    *ActualsAggregator
	engine     *AmortizationEngine
	reconciler *SavingsReconciler
	budgets    *BudgetService
	reports    *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, memory.New(), nil)
}

// newFixtureOn builds the services over store, reading through wrap when set.
func newFixtureOn(t *testing.T, store *memory.Store, wrap docstore.Store) *fixture {
	t.Helper()
	var backing docstore.Store = store
	if wrap != nil {
		backing = wrap
	}
	repo := storage.NewRepository(backing)
	tax := NewTaxonomyService(repo, 0)
	actuals := NewActualsAggregator(repo)
	engine := NewAmortizationEngine(repo)
	reconciler := NewSavingsReconciler(actuals, engine)
	return &fixture{
		store:      store,
		repo:       repo,
		taxonomy:   tax,
		categorize: NewCategorizer(repo, tax),
		actuals:    actuals,
		engine:     engine,
		reconciler: reconciler,
		budgets:    NewBudgetService(repo, tax, reconciler),
		reports:    NewReportService(repo, tax, actuals),
	}
}

func (f *fixture) group(t *testing.T, name string, order int) string {
	t.Helper()
	id, err := f.repo.SaveGroup(context.Background(), core.Group{Name: name, Order: order})
	if err != nil {
		t.Fatalf("save group: %v", err)
	}
	return id
}

func (f *fixture) category(t *testing.T, name, groupID string, reportable bool) string {
	t.Helper()
	id, err := f.repo.SaveCategory(context.Background(), core.Category{
		Name:             name,
		GroupID:          groupID,
		IncludeInReports: reportable,
	})
	if err != nil {
		t.Fatalf("save category: %v", err)
	}
	return id
}

func (f *fixture) txn(t *testing.T, owner string, date core.Date, amount string, dir core.Direction, categoryID string) {
	t.Helper()
	if _, err := f.repo.SaveTransaction(context.Background(), core.Transaction{
		OwnerID:    owner,
		Date:       date,
		Month:      date.MonthKey(),
		Amount:     d(amount),
		Direction:  dir,
		CategoryID: categoryID,
	}); err != nil {
		t.Fatalf("save transaction: %v", err)
	}
}

func (f *fixture) link(t *testing.T, owner, keyword, categoryID string) string {
	t.Helper()
	id, err := f.repo.SaveLink(context.Background(), core.MerchantLink{
		OwnerID:    owner,
		Keyword:    keyword,
		CategoryID: categoryID,
	})
	if err != nil {
		t.Fatalf("save link: %v", err)
	}
	return id
}

type scheduleCall struct {
	owner, commitmentID string
	regenerate          bool
}

type importCall struct {
	owner, source string
	res           core.ImportResult
}

type recordingPublisher struct {
	mu        sync.Mutex
	err       error
	schedules []scheduleCall
	imports   []importCall
}

func (p *recordingPublisher) PublishScheduleRequest(_ context.Context, owner, commitmentID string, regenerate bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.schedules = append(p.schedules, scheduleCall{owner, commitmentID, regenerate})
	return p.err
}

func (p *recordingPublisher) PublishImportCompleted(_ context.Context, owner, source string, res core.ImportResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.imports = append(p.imports, importCall{owner, source, res})
	return p.err
}

// hookStore wraps a memory store. afterPut runs once a write to its
// collection has landed; failing makes every call report the store down.
type hookStore struct {
	*memory.Store
	collection string
	afterPut   func()

	mu      sync.Mutex
	failing bool
}

func (h *hookStore) setFailing(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failing = v
}

func (h *hookStore) down() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failing {
		return fmt.Errorf("%w: connection refused", docstore.ErrUnavailable)
	}
	return nil
}

func (h *hookStore) Get(ctx context.Context, collection, id string) (docstore.Document, bool, error) {
	if err := h.down(); err != nil {
		return docstore.Document{}, false, err
	}
	return h.Store.Get(ctx, collection, id)
}

func (h *hookStore) Put(ctx context.Context, collection, id string, fields docstore.Fields) (string, error) {
	if err := h.down(); err != nil {
		return "", err
	}
	got, err := h.Store.Put(ctx, collection, id, fields)
	if err == nil && collection == h.collection && h.afterPut != nil {
		hook := h.afterPut
		h.afterPut = nil
		hook()
	}
	return got, err
}

func (h *hookStore) Delete(ctx context.Context, collection, id string) error {
	if err := h.down(); err != nil {
		return err
	}
	return h.Store.Delete(ctx, collection, id)
}

func (h *hookStore) Query(ctx context.Context, collection string, filters []docstore.Filter, limit int) ([]docstore.Document, error) {
	if err := h.down(); err != nil {
		return nil, err
	}
	return h.Store.Query(ctx, collection, filters, limit)
}
