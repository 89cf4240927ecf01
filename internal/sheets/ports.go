package sheets

import (
	"context"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportExporter writes a monthly budget report to an external sheet and
	// returns a reference to the written range.
	ReportExporter interface {
		ExportReport(ctx context.Context, rep core.MonthlyReport) (ref string, err error)
	}
)

// Header is the column layout written by ReportRows.
var Header = []any{"Month", "Owner", "Category", "Forecast", "Actual", "Variance", "Utilization %", "Budgeted"}

// TotalLabel marks the summary row that closes every exported report.
const TotalLabel = "Total"

// ReportRows renders a report as sheet rows: one per category followed by a
// totals row. Amounts are fixed two-decimal strings so that USER_ENTERED
// input keeps them numeric.
func ReportRows(rep core.MonthlyReport) [][]any {
	month := core.MonthKey(rep.Year, rep.Month)
	out := make([][]any, 0, len(rep.Rows)+1)
	for _, r := range rep.Rows {
		out = append(out, []any{
			month,
			rep.OwnerID,
			r.Category,
			core.FormatAmount(r.Forecast),
			core.FormatAmount(r.Actual),
			core.FormatAmount(r.Variance),
			utilization(r.Utilization),
			r.Budgeted,
		})
	}
	out = append(out, []any{
		month,
		rep.OwnerID,
		TotalLabel,
		core.FormatAmount(rep.TotalForecast),
		core.FormatAmount(rep.TotalActual),
		core.FormatAmount(rep.Variance),
		utilization(rep.Utilization),
		"",
	})
	return out
}

func utilization(u decimal.NullDecimal) string {
	if !u.Valid {
		return ""
	}
	return u.Decimal.String()
}
