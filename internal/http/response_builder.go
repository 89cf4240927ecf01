package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
	"budgeting/internal/docstore"
	"budgeting/internal/log"
	"budgeting/internal/services"
)

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps service errors onto status codes and logs server-side
// failures. Unexpected errors are not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
		resp.Error = ve.Error()
	}
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldError, err)
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	var (
		ve       *core.ValidationError
		csvErr   *csv.ParseError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &csvErr), errors.Is(err, services.ErrEmptyImport):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, docstore.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func amountString(d decimal.Decimal) string { return core.FormatAmount(d) }

func nullAmount(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := core.FormatAmount(d.Decimal)
	return &s
}

func dateString(d core.Date) string { return d.String() }

type (
	groupResponse struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Order int    `json:"order"`
	}

	categoryResponse struct {
		ID               string `json:"id"`
		Name             string `json:"name"`
		DisplayName      string `json:"display_name"`
		GroupID          string `json:"group_id,omitempty"`
		GroupName        string `json:"group_name,omitempty"`
		IncludeInReports bool   `json:"include_in_reports"`
		Order            int    `json:"order"`
	}

	taxonomyResponse struct {
		Groups     []groupResponse    `json:"groups"`
		Categories []categoryResponse `json:"categories"`
	}

	transactionResponse struct {
		ID             string `json:"id"`
		Date           string `json:"date"`
		Month          string `json:"month"`
		Description    string `json:"description"`
		CategoryID     string `json:"category_id,omitempty"`
		Classification string `json:"classification,omitempty"`
		Amount         string `json:"amount"`
		Direction      string `json:"direction"`
		SourceAccount  string `json:"source_account,omitempty"`
		ExternalID     string `json:"external_id,omitempty"`
	}

	linkResponse struct {
		ID         string `json:"id"`
		Keyword    string `json:"keyword"`
		CategoryID string `json:"category_id"`
		Global     bool   `json:"global"`
	}

	budgetResponse struct {
		ID         string `json:"id"`
		CategoryID string `json:"category_id"`
		Year       int    `json:"year"`
		Month      int    `json:"month"`
		Forecast   string `json:"forecast"`
	}

	savingsResponse struct {
		ID         string  `json:"id"`
		Year       int     `json:"year"`
		Month      int     `json:"month"`
		Target     string  `json:"target"`
		Actual     *string `json:"actual"`
		Effective  string  `json:"effective,omitempty"`
		GoalStatus string  `json:"goal_status"`
	}

	commitmentResponse struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Principal     string `json:"principal"`
		StartDate     string `json:"start_date"`
		TermMonths    int    `json:"term_months"`
		Frequency     string `json:"frequency"`
		PaymentAmount string `json:"payment_amount"`
		Balloon       string `json:"balloon"`
		Remaining     string `json:"remaining,omitempty"`
	}

	lineResponse struct {
		ID           string `json:"id"`
		CommitmentID string `json:"commitment_id"`
		DueDate      string `json:"due_date"`
		Amount       string `json:"amount"`
		Status       string `json:"status"`
		Sequence     int    `json:"sequence"`
	}

	standingResponse struct {
		ID                   string `json:"id"`
		SnapshotDate         string `json:"snapshot_date"`
		TotalAssets          string `json:"total_assets"`
		CurrentAssets        string `json:"current_assets"`
		FixedAssets          string `json:"fixed_assets"`
		TotalLiabilities     string `json:"total_liabilities"`
		ShortTermLiabilities string `json:"short_term_liabilities"`
		LongTermLiabilities  string `json:"long_term_liabilities"`
		Notes                string `json:"notes,omitempty"`
	}

	reportRowResponse struct {
		CategoryID  string  `json:"category_id"`
		Category    string  `json:"category"`
		GroupName   string  `json:"group_name,omitempty"`
		Forecast    string  `json:"forecast"`
		Actual      string  `json:"actual"`
		Variance    string  `json:"variance"`
		Utilization *string `json:"utilization_pct"`
		Budgeted    bool    `json:"budgeted"`
	}

	reportResponse struct {
		Year          int                 `json:"year"`
		Month         int                 `json:"month"`
		Rows          []reportRowResponse `json:"rows"`
		TotalForecast string              `json:"total_forecast"`
		TotalActual   string              `json:"total_actual"`
		Variance      string              `json:"variance"`
		Utilization   *string             `json:"utilization_pct"`
		Highest       *reportRowResponse  `json:"highest"`
		TopOverspends []reportRowResponse `json:"top_overspends"`
		IncomeTotal   string              `json:"income_total"`
		ExpenseTotal  string              `json:"expense_total"`
	}

	importResponse struct {
		Created int      `json:"created"`
		Skipped int      `json:"skipped"`
		Months  []string `json:"months"`
	}

	recordResponse struct {
		ID            string `json:"id"`
		Date          string `json:"date"`
		Amount        string `json:"amount"`
		Currency      string `json:"currency,omitempty"`
		Type          string `json:"type,omitempty"`
		Note          string `json:"note,omitempty"`
		TransactionID string `json:"transaction_id,omitempty"`
	}
)

func newTaxonomyResponse(tax services.Taxonomy) taxonomyResponse {
	resp := taxonomyResponse{
		Groups:     make([]groupResponse, 0, len(tax.Groups)),
		Categories: make([]categoryResponse, 0, len(tax.Categories)),
	}
	for _, g := range tax.Groups {
		resp.Groups = append(resp.Groups, groupResponse{ID: g.ID, Name: g.Name, Order: g.Order})
	}
	for _, c := range tax.Categories {
		resp.Categories = append(resp.Categories, newCategoryResponse(tax, c))
	}
	return resp
}

func newCategoryResponse(tax services.Taxonomy, c core.Category) categoryResponse {
	return categoryResponse{
		ID:               c.ID,
		Name:             c.Name,
		DisplayName:      tax.DisplayName(c.ID),
		GroupID:          c.GroupID,
		GroupName:        c.GroupName,
		IncludeInReports: c.IncludeInReports,
		Order:            c.Order,
	}
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:             t.ID,
		Date:           dateString(t.Date),
		Month:          t.Month,
		Description:    t.Description,
		CategoryID:     t.CategoryID,
		Classification: string(t.Classification),
		Amount:         amountString(t.Amount),
		Direction:      string(t.Direction),
		SourceAccount:  t.SourceAccount,
		ExternalID:     t.ExternalID,
	}
}

func newTransactionsResponse(txns []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, newTransactionResponse(t))
	}
	return out
}

func newLinkResponse(l core.MerchantLink) linkResponse {
	return linkResponse{ID: l.ID, Keyword: l.Keyword, CategoryID: l.CategoryID, Global: l.OwnerID == ""}
}

func newBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Year:       b.Year,
		Month:      b.Month,
		Forecast:   amountString(b.Forecast),
	}
}

func newSavingsResponse(s core.Savings) savingsResponse {
	return savingsResponse{
		ID:         s.ID,
		Year:       s.Year,
		Month:      s.Month,
		Target:     amountString(s.Target),
		Actual:     nullAmount(s.Actual),
		GoalStatus: string(s.GoalStatus),
	}
}

func newCommitmentResponse(c core.Commitment) commitmentResponse {
	return commitmentResponse{
		ID:            c.ID,
		Name:          c.Name,
		Principal:     amountString(c.Principal),
		StartDate:     dateString(c.StartDate),
		TermMonths:    c.TermMonths,
		Frequency:     string(c.Frequency),
		PaymentAmount: amountString(c.PaymentAmount),
		Balloon:       amountString(c.Balloon),
	}
}

func newLineResponse(l core.ScheduleLine) lineResponse {
	return lineResponse{
		ID:           l.ID,
		CommitmentID: l.CommitmentID,
		DueDate:      dateString(l.DueDate),
		Amount:       amountString(l.Amount),
		Status:       string(l.Status),
		Sequence:     l.Sequence,
	}
}

func newStandingResponse(f core.FinancialStanding) standingResponse {
	return standingResponse{
		ID:                   f.ID,
		SnapshotDate:         dateString(f.SnapshotDate),
		TotalAssets:          amountString(f.TotalAssets),
		CurrentAssets:        amountString(f.CurrentAssets),
		FixedAssets:          amountString(f.FixedAssets),
		TotalLiabilities:     amountString(f.TotalLiabilities),
		ShortTermLiabilities: amountString(f.ShortTermLiabilities),
		LongTermLiabilities:  amountString(f.LongTermLiabilities),
		Notes:                f.Notes,
	}
}

func newReportRowResponse(row core.ReportRow) reportRowResponse {
	return reportRowResponse{
		CategoryID:  row.CategoryID,
		Category:    row.Category,
		GroupName:   row.GroupName,
		Forecast:    amountString(row.Forecast),
		Actual:      amountString(row.Actual),
		Variance:    amountString(row.Variance),
		Utilization: nullAmount(row.Utilization),
		Budgeted:    row.Budgeted,
	}
}

func newReportResponse(rep core.MonthlyReport) reportResponse {
	resp := reportResponse{
		Year:          rep.Year,
		Month:         rep.Month,
		Rows:          make([]reportRowResponse, 0, len(rep.Rows)),
		TotalForecast: amountString(rep.TotalForecast),
		TotalActual:   amountString(rep.TotalActual),
		Variance:      amountString(rep.Variance),
		Utilization:   nullAmount(rep.Utilization),
		TopOverspends: make([]reportRowResponse, 0, len(rep.TopOverspends)),
		IncomeTotal:   amountString(rep.IncomeTotal),
		ExpenseTotal:  amountString(rep.ExpenseTotal),
	}
	for _, row := range rep.Rows {
		resp.Rows = append(resp.Rows, newReportRowResponse(row))
	}
	for _, row := range rep.TopOverspends {
		resp.TopOverspends = append(resp.TopOverspends, newReportRowResponse(row))
	}
	if rep.Highest != nil {
		h := newReportRowResponse(*rep.Highest)
		resp.Highest = &h
	}
	return resp
}

func newImportResponse(res core.ImportResult) importResponse {
	months := res.Months
	if months == nil {
		months = []string{}
	}
	return importResponse{Created: res.Created, Skipped: res.Skipped, Months: months}
}

func newRecordResponse(c services.RecordCandidate) recordResponse {
	return recordResponse{
		ID:            c.Record.ID,
		Date:          dateString(c.Record.Date),
		Amount:        amountString(c.Record.Amount),
		Currency:      c.Record.Currency,
		Type:          c.Record.Type,
		Note:          c.Record.Note,
		TransactionID: c.TransactionID,
	}
}
