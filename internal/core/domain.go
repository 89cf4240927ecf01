package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income   Direction = "income"
	Expense  Direction = "expense"
	Transfer Direction = "transfer"

	Fixed    Classification = "fixed"
	Variable Classification = "variable"

	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"

	Outstanding LineStatus = "outstanding"
	Paid        LineStatus = "paid"

	GoalMet     GoalStatus = "met"
	GoalMissed  GoalStatus = "missed"
	GoalPending GoalStatus = "pending"
)

// Field limits shared by write paths and record encoding.
const (
	MaxDescriptionLen    = 500
	MaxCommitmentNameLen = 200
	MaxKeywordLen        = 120
	MaxSourceAccountLen  = 100
)

type (
	Direction      string
	Classification string
	Frequency      string
	LineStatus     string
	GoalStatus     string

	Date struct {
		time.Time
	}

	Group struct {
		ID    string
		Name  string
		Order int
	}

	Category struct {
		ID               string
		Name             string
		GroupID          string
		GroupName        string // resolved on load, never persisted
		IncludeInReports bool
		Order            int
	}

	Transaction struct {
		ID             string
		OwnerID        string
		Date           Date
		Month          string // YYYY-MM, always derived from Date
		Description    string
		CategoryID     string // empty means uncategorized
		Classification Classification
		Amount         decimal.Decimal // magnitude, Direction carries the sign
		Direction      Direction
		SourceAccount  string
		ExternalID     string
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	// MerchantLink maps a case-insensitive keyword to a category.
	// An empty OwnerID marks a global default link.
	MerchantLink struct {
		ID         string
		Keyword    string
		CategoryID string
		OwnerID    string
	}

	Budget struct {
		ID         string
		OwnerID    string
		CategoryID string
		Year       int
		Month      int
		Forecast   decimal.Decimal
	}

	Savings struct {
		ID         string
		OwnerID    string
		Year       int
		Month      int
		Actual     decimal.NullDecimal // manual override; invalid means derive on read
		Target     decimal.Decimal
		GoalStatus GoalStatus
	}

	Commitment struct {
		ID            string
		OwnerID       string
		Name          string
		Principal     decimal.Decimal
		StartDate     Date
		TermMonths    int
		Frequency     Frequency
		PaymentAmount decimal.Decimal
		Balloon       decimal.Decimal
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	ScheduleLine struct {
		ID           string
		CommitmentID string
		DueDate      Date
		Amount       decimal.Decimal
		Status       LineStatus
		Sequence     int
	}

	FinancialStanding struct {
		ID                   string
		OwnerID              string
		SnapshotDate         Date
		TotalAssets          decimal.Decimal
		CurrentAssets        decimal.Decimal
		FixedAssets          decimal.Decimal
		TotalLiabilities     decimal.Decimal
		ShortTermLiabilities decimal.Decimal
		LongTermLiabilities  decimal.Decimal
		Notes                string
		CreatedAt            time.Time
	}

	// ExpenseRecord is a lightweight expense captured by the companion
	// expenses app. It can be promoted into a Transaction.
	ExpenseRecord struct {
		ID           string
		CreatedBy    string
		Date         Date
		Amount       decimal.Decimal
		Currency     string
		Type         string
		Note         string
		RecordStatus string
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrTooLong          = errors.New("value too long")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyOwner       = errors.New("empty owner")
	ErrEmptyKeyword     = errors.New("empty keyword")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidClass     = errors.New("invalid classification")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidTerm      = errors.New("invalid term")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrMonthKeyMismatch = errors.New("month key does not match date")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrDuplicateKeyword = errors.New("keyword already linked to category")
)

// ValidationError reports a rejected field on a write path.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error, msg string) error {
	if msg == "" {
		msg = err.Error()
	}
	return &ValidationError{Field: field, Message: msg, Err: err}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts the ISO date prefix of s (YYYY-MM-DD...).
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// MonthKey returns the YYYY-MM grouping key of the date.
func (d Date) MonthKey() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Direction) Valid() bool {
	switch d {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

func (c Classification) Valid() bool {
	switch c {
	case "", Fixed, Variable:
		return true
	}
	return false
}

func (f Frequency) Valid() bool {
	switch f {
	case Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

func (s LineStatus) Valid() bool {
	return s == Outstanding || s == Paid
}

func (g GoalStatus) Valid() bool {
	switch g {
	case GoalMet, GoalMissed, GoalPending:
		return true
	}
	return false
}

// ValidMonth reports whether month is in 1..12.
func ValidMonth(month int) bool {
	return month >= 1 && month <= 12
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" {
		return invalid("owner_id", ErrEmptyOwner, "")
	}
	if err := t.Date.Validate(); err != nil {
		return invalid("date", err, "")
	}
	if t.Month != t.Date.MonthKey() {
		return invalid("month", ErrMonthKeyMismatch, "")
	}
	if t.Amount.IsNegative() {
		return invalid("amount", ErrInvalidAmount, "amount must be a non-negative magnitude")
	}
	if !t.Direction.Valid() {
		return invalid("direction", ErrInvalidDirection, "direction must be income, expense or transfer")
	}
	if !t.Classification.Valid() {
		return invalid("classification", ErrInvalidClass, "classification must be fixed, variable or empty")
	}
	if len([]rune(t.SourceAccount)) > MaxSourceAccountLen {
		return invalid("source_account", ErrTooLong, "source account too long (max 100 characters)")
	}
	return nil
}

func (l MerchantLink) Validate() error {
	kw := strings.TrimSpace(l.Keyword)
	if kw == "" {
		return invalid("keyword", ErrEmptyKeyword, "")
	}
	if len([]rune(kw)) > MaxKeywordLen {
		return invalid("keyword", ErrTooLong, "keyword too long (max 120 characters)")
	}
	if strings.TrimSpace(l.CategoryID) == "" {
		return invalid("category_id", ErrEmptyCategory, "")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.OwnerID) == "" {
		return invalid("owner_id", ErrEmptyOwner, "")
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return invalid("category_id", ErrEmptyCategory, "")
	}
	if !ValidMonth(b.Month) {
		return invalid("month", ErrInvalidMonth, "month must be 1-12")
	}
	if b.Forecast.IsNegative() {
		return invalid("forecast", ErrInvalidAmount, "forecast cannot be negative")
	}
	return nil
}

func (s Savings) Validate() error {
	if strings.TrimSpace(s.OwnerID) == "" {
		return invalid("owner_id", ErrEmptyOwner, "")
	}
	if !ValidMonth(s.Month) {
		return invalid("month", ErrInvalidMonth, "month must be 1-12")
	}
	if !s.GoalStatus.Valid() {
		return invalid("goal_status", ErrInvalidStatus, "goal status must be met, missed or pending")
	}
	return nil
}

func (c Commitment) Validate() error {
	if strings.TrimSpace(c.OwnerID) == "" {
		return invalid("owner_id", ErrEmptyOwner, "")
	}
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name", ErrEmptyName, "")
	}
	if len([]rune(c.Name)) > MaxCommitmentNameLen {
		return invalid("name", ErrTooLong, "name too long (max 200 characters)")
	}
	if c.Principal.IsNegative() {
		return invalid("principal", ErrInvalidAmount, "principal cannot be negative")
	}
	if err := c.StartDate.Validate(); err != nil {
		return invalid("start_date", err, "")
	}
	if c.TermMonths <= 0 {
		return invalid("term_months", ErrInvalidTerm, "term must be at least one month")
	}
	if !c.Frequency.Valid() {
		return invalid("frequency", ErrInvalidFrequency, "frequency must be monthly, quarterly or yearly")
	}
	if c.PaymentAmount.IsNegative() {
		return invalid("payment_amount", ErrInvalidAmount, "payment amount cannot be negative")
	}
	if c.Balloon.IsNegative() {
		return invalid("balloon", ErrInvalidAmount, "balloon cannot be negative")
	}
	return nil
}

func (f FinancialStanding) Validate() error {
	if strings.TrimSpace(f.OwnerID) == "" {
		return invalid("owner_id", ErrEmptyOwner, "")
	}
	if err := f.SnapshotDate.Validate(); err != nil {
		return invalid("snapshot_date", err, "")
	}
	return nil
}

// Active reports whether the record has not been soft-deleted upstream.
func (r ExpenseRecord) Active() bool {
	return r.RecordStatus == "" || r.RecordStatus == "active"
}
