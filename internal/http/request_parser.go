package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
	"budgeting/internal/services"
)

const maxBodyBytes = 1 << 20

var errMalformedBody = errors.New("malformed request body")

// decodeJSON reads one JSON document into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "malformed JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		return &core.ValidationError{Field: "body", Message: msg, Err: errMalformedBody}
	}
	return nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, then trims whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// pathYearMonth reads the {year} and {month} path values.
func pathYearMonth(r *http.Request) (year, month int, err error) {
	year, err = strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 1900 || year > 9999 {
		return 0, 0, &core.ValidationError{Field: "year", Message: "year must be a 4-digit number", Err: core.ErrInvalidMonth}
	}
	month, err = strconv.Atoi(r.PathValue("month"))
	if err != nil || !core.ValidMonth(month) {
		return 0, 0, &core.ValidationError{Field: "month", Message: "month must be between 1 and 12", Err: core.ErrInvalidMonth}
	}
	return year, month, nil
}

// monthQuery returns the optional ?month=YYYY-MM filter.
func monthQuery(r *http.Request) (string, error) {
	key := strings.TrimSpace(r.URL.Query().Get("month"))
	if key == "" {
		return "", nil
	}
	if _, _, err := core.ParseMonthKey(key); err != nil {
		return "", &core.ValidationError{Field: "month", Message: "month must be YYYY-MM", Err: core.ErrInvalidMonth}
	}
	return key, nil
}

func parseDateField(field, s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: field, Message: "date must be YYYY-MM-DD", Err: core.ErrInvalidDate}
	}
	return d, nil
}

// parseAmountField parses a non-negative amount. Empty means zero when
// optional is set.
func parseAmountField(field, s string, optional bool) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" && optional {
		return decimal.Zero, nil
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, &core.ValidationError{Field: field, Message: fmt.Sprintf("invalid amount %q", s), Err: core.ErrInvalidAmount}
	}
	return d, nil
}

type transactionRequest struct {
	Date           string `json:"date"`
	Description    string `json:"description"`
	CategoryID     string `json:"category_id"`
	Classification string `json:"classification"`
	Amount         string `json:"amount"`
	Direction      string `json:"direction"`
	SourceAccount  string `json:"source_account"`
}

func (req transactionRequest) toCore(owner string) (core.Transaction, error) {
	date, err := parseDateField("date", req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := parseAmountField("amount", req.Amount, false)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		OwnerID:        owner,
		Date:           date,
		Description:    sanitizeInput(req.Description),
		CategoryID:     strings.TrimSpace(req.CategoryID),
		Classification: core.Classification(strings.TrimSpace(req.Classification)),
		Amount:         amount,
		Direction:      core.Direction(strings.TrimSpace(req.Direction)),
		SourceAccount:  sanitizeInput(req.SourceAccount),
	}, nil
}

type linkRequest struct {
	Keyword    string `json:"keyword"`
	CategoryID string `json:"category_id"`
}

type forecastRequest struct {
	Forecast string `json:"forecast"`
}

type savingsRequest struct {
	Target     string  `json:"target"`
	Actual     *string `json:"actual"`
	GoalStatus string  `json:"goal_status"`
}

func (req savingsRequest) toUpdate() (services.SavingsUpdate, error) {
	target, err := parseAmountField("target", req.Target, true)
	if err != nil {
		return services.SavingsUpdate{}, err
	}
	upd := services.SavingsUpdate{
		Target:     target,
		GoalStatus: core.GoalStatus(strings.TrimSpace(req.GoalStatus)),
	}
	if req.Actual != nil && strings.TrimSpace(*req.Actual) != "" {
		actual, err := core.ParseSignedAmount(*req.Actual)
		if err != nil {
			return services.SavingsUpdate{}, &core.ValidationError{Field: "actual", Message: fmt.Sprintf("invalid amount %q", *req.Actual), Err: core.ErrInvalidAmount}
		}
		upd.Actual = decimal.NewNullDecimal(actual)
	}
	return upd, nil
}

type commitmentRequest struct {
	Name          string `json:"name"`
	Principal     string `json:"principal"`
	StartDate     string `json:"start_date"`
	TermMonths    int    `json:"term_months"`
	Frequency     string `json:"frequency"`
	PaymentAmount string `json:"payment_amount"`
	Balloon       string `json:"balloon"`
}

func (req commitmentRequest) toCore(owner string) (core.Commitment, error) {
	start, err := parseDateField("start_date", req.StartDate)
	if err != nil {
		return core.Commitment{}, err
	}
	principal, err := parseAmountField("principal", req.Principal, false)
	if err != nil {
		return core.Commitment{}, err
	}
	payment, err := parseAmountField("payment_amount", req.PaymentAmount, true)
	if err != nil {
		return core.Commitment{}, err
	}
	balloon, err := parseAmountField("balloon", req.Balloon, true)
	if err != nil {
		return core.Commitment{}, err
	}
	freq := core.Frequency(strings.TrimSpace(req.Frequency))
	if freq == "" {
		freq = core.Monthly
	}
	return core.Commitment{
		OwnerID:       owner,
		Name:          sanitizeInput(req.Name),
		Principal:     principal,
		StartDate:     start,
		TermMonths:    req.TermMonths,
		Frequency:     freq,
		PaymentAmount: payment,
		Balloon:       balloon,
	}, nil
}

type lineStatusRequest struct {
	Status string `json:"status"`
}

type standingRequest struct {
	SnapshotDate         string `json:"snapshot_date"`
	TotalAssets          string `json:"total_assets"`
	CurrentAssets        string `json:"current_assets"`
	FixedAssets          string `json:"fixed_assets"`
	TotalLiabilities     string `json:"total_liabilities"`
	ShortTermLiabilities string `json:"short_term_liabilities"`
	LongTermLiabilities  string `json:"long_term_liabilities"`
	Notes                string `json:"notes"`
}

func (req standingRequest) toCore(owner string) (core.FinancialStanding, error) {
	date, err := parseDateField("snapshot_date", req.SnapshotDate)
	if err != nil {
		return core.FinancialStanding{}, err
	}
	f := core.FinancialStanding{OwnerID: owner, SnapshotDate: date, Notes: sanitizeInput(req.Notes)}
	amounts := []struct {
		field string
		value string
		dst   *decimal.Decimal
	}{
		{"total_assets", req.TotalAssets, &f.TotalAssets},
		{"current_assets", req.CurrentAssets, &f.CurrentAssets},
		{"fixed_assets", req.FixedAssets, &f.FixedAssets},
		{"total_liabilities", req.TotalLiabilities, &f.TotalLiabilities},
		{"short_term_liabilities", req.ShortTermLiabilities, &f.ShortTermLiabilities},
		{"long_term_liabilities", req.LongTermLiabilities, &f.LongTermLiabilities},
	}
	for _, a := range amounts {
		v, err := parseAmountField(a.field, a.value, true)
		if err != nil {
			return core.FinancialStanding{}, err
		}
		*a.dst = v
	}
	return f, nil
}
