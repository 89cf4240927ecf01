package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// PromotionPrefix prefixes the external id of transactions promoted from
// companion expense records.
const PromotionPrefix = "consumption:"

const (
	promotedDescription = "From expense"
	externalDescLen     = 50
	sourceCSV           = "csv"
	sourcePromotion     = "expense_records"
)

var ErrEmptyImport = errors.New("import file is empty")

// Importer creates transactions from statement files and from companion
// expense records. Both paths are idempotent through external ids.
type Importer struct {
	repo        *storage.Repository
	categorizer *Categorizer
	rates       core.ExchangeRates
	publisher   EventPublisher
	now         func() time.Time
}

func NewImporter(repo *storage.Repository, categorizer *Categorizer, rates core.ExchangeRates, publisher EventPublisher) *Importer {
	return &Importer{repo: repo, categorizer: categorizer, rates: rates, publisher: publisher, now: time.Now}
}

// ImportCSV reads date, description and signed amount columns. The first
// row is a header. Rows with fewer than three columns are ignored; rows with
// an unreadable date or amount, and rows already imported, count as skipped.
// Negative amounts are expenses, everything else income.
func (im *Importer) ImportCSV(ctx context.Context, owner string, r io.Reader) (core.ImportResult, error) {
	var res core.ImportResult
	if strings.TrimSpace(owner) == "" {
		return res, &core.ValidationError{Field: "owner_id", Message: core.ErrEmptyOwner.Error(), Err: core.ErrEmptyOwner}
	}

	rows, err := readCSV(r)
	if err != nil {
		return res, err
	}
	if len(rows) == 0 {
		return res, ErrEmptyImport
	}

	for _, row := range rows[1:] {
		if len(row) < 3 {
			continue
		}
		date, ok := parseStatementDate(row[0])
		if !ok {
			res.Skipped++
			continue
		}
		desc := truncateRunes(strings.TrimSpace(row[1]), core.MaxDescriptionLen)
		signed, err := core.ParseSignedAmount(row[2])
		if err != nil {
			res.Skipped++
			continue
		}

		direction := core.Income
		if signed.IsNegative() {
			direction = core.Expense
		}
		magnitude := signed.Abs()
		extID := fmt.Sprintf("%s-%s-%s", date, plainAmount(magnitude), truncateRunes(desc, externalDescLen))

		exists, err := im.repo.ExistsByExternalID(ctx, owner, extID)
		if err != nil {
			return res, fmt.Errorf("check duplicate: %w", err)
		}
		if exists {
			res.Skipped++
			continue
		}

		t := core.Transaction{
			OwnerID:     owner,
			Date:        date,
			Month:       date.MonthKey(),
			Description: desc,
			Amount:      core.Round2(magnitude),
			Direction:   direction,
			ExternalID:  extID,
		}
		if err := im.suggest(ctx, &t, desc); err != nil {
			return res, err
		}
		if err := im.save(ctx, &t); err != nil {
			return res, err
		}
		res.Created++
		addMonth(&res, t.Month)
	}

	slog.InfoContext(ctx, "CSV import finished",
		"owner_id", owner,
		"created", res.Created,
		"skipped", res.Skipped)
	im.announce(ctx, owner, sourceCSV, res)
	return res, nil
}

// PromoteExpense creates a transaction from one companion expense record.
// created is false when the record was already promoted.
func (im *Importer) PromoteExpense(ctx context.Context, owner, recordID string) (t core.Transaction, created bool, err error) {
	rec, ok, err := im.repo.GetExpenseRecord(ctx, recordID)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("get expense record: %w", err)
	}
	if !ok || rec.CreatedBy != owner || !rec.Active() {
		return core.Transaction{}, false, fmt.Errorf("expense record %s: %w", recordID, core.ErrNotFound)
	}
	t, created, err = im.promote(ctx, owner, rec)
	if err != nil {
		return core.Transaction{}, false, err
	}
	if created {
		im.announce(ctx, owner, sourcePromotion, core.ImportResult{Created: 1, Months: []string{t.Month}})
	}
	return t, created, nil
}

// PromoteMonth promotes every active record of the owner dated in the month.
func (im *Importer) PromoteMonth(ctx context.Context, owner string, year, month int) (core.ImportResult, error) {
	var res core.ImportResult
	if !core.ValidMonth(month) {
		return res, &core.ValidationError{Field: "month", Message: "month must be 1-12", Err: core.ErrInvalidMonth}
	}
	records, err := im.repo.ExpenseRecordsByOwner(ctx, owner)
	if err != nil {
		return res, fmt.Errorf("list expense records: %w", err)
	}
	for _, rec := range records {
		if !rec.Active() || !rec.Date.InMonth(year, month) {
			continue
		}
		t, created, err := im.promote(ctx, owner, rec)
		if err != nil {
			return res, err
		}
		if created {
			res.Created++
			addMonth(&res, t.Month)
		} else {
			res.Skipped++
		}
	}
	slog.InfoContext(ctx, "Expense records promoted",
		"owner_id", owner,
		"year", year,
		"month", month,
		"created", res.Created,
		"skipped", res.Skipped)
	im.announce(ctx, owner, sourcePromotion, res)
	return res, nil
}

// RecordCandidate is a companion expense record with the transaction it was
// promoted to, if any.
type RecordCandidate struct {
	Record        core.ExpenseRecord
	TransactionID string
}

// MonthRecords lists the owner's active records dated in the month, oldest
// first, marking the ones already promoted.
func (im *Importer) MonthRecords(ctx context.Context, owner string, year, month int) ([]RecordCandidate, error) {
	records, err := im.repo.ExpenseRecordsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list expense records: %w", err)
	}
	txns, err := im.repo.TransactionsByOwner(ctx, owner, core.MonthKey(year, month))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	promoted := map[string]string{}
	for _, t := range txns {
		if id, ok := strings.CutPrefix(t.ExternalID, PromotionPrefix); ok {
			promoted[strings.TrimSpace(id)] = t.ID
		}
	}
	var out []RecordCandidate
	for _, rec := range records {
		if !rec.Active() || !rec.Date.InMonth(year, month) {
			continue
		}
		out = append(out, RecordCandidate{Record: rec, TransactionID: promoted[rec.ID]})
	}
	return out, nil
}

func (im *Importer) promote(ctx context.Context, owner string, rec core.ExpenseRecord) (core.Transaction, bool, error) {
	extID := PromotionPrefix + rec.ID
	exists, err := im.repo.ExistsByExternalID(ctx, owner, extID)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		return core.Transaction{}, false, nil
	}

	amount, ok := im.rates.ToBase(rec.Amount, rec.Currency)
	if !ok {
		slog.WarnContext(ctx, "No exchange rate, promoting amount unconverted",
			"record_id", rec.ID,
			"currency", rec.Currency,
			"base_currency", im.rates.Base)
	}

	desc := strings.TrimSpace(rec.Note)
	if desc == "" {
		desc = promotedDescription
	}
	t := core.Transaction{
		OwnerID:     owner,
		Date:        rec.Date,
		Month:       rec.Date.MonthKey(),
		Description: truncateRunes(desc, core.MaxDescriptionLen),
		Amount:      core.Round2(amount.Abs()),
		Direction:   core.Expense,
		ExternalID:  extID,
	}
	if rec.Note != "" {
		if err := im.suggest(ctx, &t, rec.Note); err != nil {
			return core.Transaction{}, false, err
		}
	}
	if err := im.save(ctx, &t); err != nil {
		return core.Transaction{}, false, err
	}
	return t, true, nil
}

func (im *Importer) suggest(ctx context.Context, t *core.Transaction, desc string) error {
	if im.categorizer == nil {
		return nil
	}
	cat, ok, err := im.categorizer.SuggestCategory(ctx, desc, t.OwnerID)
	if err != nil {
		return fmt.Errorf("suggest category: %w", err)
	}
	if ok {
		t.CategoryID = cat.ID
	}
	return nil
}

func (im *Importer) save(ctx context.Context, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	now := im.now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	id, err := im.repo.SaveTransaction(ctx, *t)
	if err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}
	t.ID = id
	return nil
}

func (im *Importer) announce(ctx context.Context, owner, source string, res core.ImportResult) {
	if im.publisher == nil || res.Created == 0 {
		return
	}
	if err := im.publisher.PublishImportCompleted(ctx, owner, source, res); err != nil {
		slog.ErrorContext(ctx, "Failed to publish import notification",
			"owner_id", owner, "source", source, "error", err)
	}
}

func addMonth(res *core.ImportResult, key string) {
	i, found := slices.BinarySearch(res.Months, key)
	if found {
		return
	}
	res.Months = slices.Insert(res.Months, i, key)
}

// readCSV decodes UTF-8, with or without BOM, falling back to Latin-1.
func readCSV(r io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		raw, err = charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decode latin-1: %w", err)
		}
	}
	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

// parseStatementDate accepts YYYY-MM-DD or DD/MM/YYYY in the first ten characters.
func parseStatementDate(s string) (core.Date, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return core.Date{Time: t}, true
		}
	}
	return core.Date{}, false
}

// plainAmount renders the magnitude with the scale it was written with,
// so "-12.50" gives "12.50".
func plainAmount(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
