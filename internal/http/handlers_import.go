package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"budgeting/internal/core"
)

const maxUploadBytes = 10 << 20

var errMissingUpload = errors.New("missing upload")

// handleImportCSV accepts a bank statement either as the "file" part of a
// multipart form or as the raw request body.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, &core.ValidationError{Field: "file", Message: "multipart field \"file\" is required", Err: errMissingUpload})
			return
		}
		defer file.Close()
		src = file
	}

	res, err := s.backend.Importer.ImportCSV(r.Context(), ownerFrom(r), src)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newImportResponse(res))
}

func (s *Server) handleRecordMonths(w http.ResponseWriter, r *http.Request) {
	months, err := s.backend.Transactions.RecordMonths(r.Context(), ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if months == nil {
		months = []string{}
	}
	writeJSON(w, http.StatusOK, months)
}

func (s *Server) handleMonthRecords(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathYearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	candidates, err := s.backend.Importer.MonthRecords(r.Context(), ownerFrom(r), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]recordResponse, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, newRecordResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePromoteRecord(w http.ResponseWriter, r *http.Request) {
	t, created, err := s.backend.Importer.PromoteExpense(r.Context(), ownerFrom(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, newTransactionResponse(t))
}

func (s *Server) handlePromoteMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathYearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.backend.Importer.PromoteMonth(r.Context(), ownerFrom(r), year, month)
	if err != nil {
		writeError(w, r, fmt.Errorf("promote %s: %w", core.MonthKey(year, month), err))
		return
	}
	writeJSON(w, http.StatusOK, newImportResponse(res))
}
