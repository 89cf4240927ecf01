package http

import (
	"net/http"

	"budgeting/internal/log"
)

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathYearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.backend.Reports.MonthlyReport(r.Context(), ownerFrom(r), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(rep))
}

// handleExportReport builds the monthly report and appends it to the
// configured spreadsheet.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	if s.backend.Exporter == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "report export not configured")
		return
	}
	year, month, err := pathYearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.backend.Reports.MonthlyReport(r.Context(), ownerFrom(r), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := s.backend.Exporter.ExportReport(r.Context(), rep)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Report export failed",
			log.FieldYear, year, log.FieldMonth, month, log.FieldError, err)
		writeErrorMessage(w, http.StatusBadGateway, "report export failed")
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Report exported",
		log.FieldYear, year, log.FieldMonth, month, log.FieldSheetsRef, ref)
	writeJSON(w, http.StatusOK, map[string]string{"ref": ref})
}
