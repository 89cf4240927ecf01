package memory

import (
	"context"
	"fmt"
	"sync"

	"budgeting/internal/core"
	ports "budgeting/internal/sheets"
)

// Export is one report written to the in-memory sheet.
type Export struct {
	Ref    string
	Report core.MonthlyReport
	Rows   [][]any
}

// Exporter keeps exported reports in process. It backs local runs without a
// spreadsheet and the worker tests.
type Exporter struct {
	mu      sync.Mutex
	exports []Export
	rows    int
}

var _ ports.ReportExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// ExportReport renders the report and returns a synthetic range reference.
func (e *Exporter) ExportReport(_ context.Context, rep core.MonthlyReport) (string, error) {
	if !core.ValidMonth(rep.Month) {
		return "", fmt.Errorf("invalid month: %d", rep.Month)
	}
	rows := ports.ReportRows(rep)

	e.mu.Lock()
	defer e.mu.Unlock()
	first := e.rows + 1
	e.rows += len(rows)
	ref := fmt.Sprintf("mem:%d-%d", first, e.rows)
	e.exports = append(e.exports, Export{Ref: ref, Report: rep, Rows: rows})
	return ref, nil
}

// Exports returns a copy of everything exported so far, oldest first.
func (e *Exporter) Exports() []Export {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Export(nil), e.exports...)
}
