package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathYearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	budgets, err := s.backend.Budgets.ListBudgets(r.Context(), ownerFrom(r), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, newBudgetResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSetForecast creates the category budget when missing, then sets its forecast.
func (s *Server) handleSetForecast(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathYearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req forecastRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	forecast, err := parseAmountField("forecast", req.Forecast, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.backend.Budgets.SetForecast(r.Context(), ownerFrom(r), r.PathValue("category"), year, month, forecast)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetResponse(b))
}

// handleListSavings fills a missing actual with the derived savings for display.
func (s *Server) handleListSavings(w http.ResponseWriter, r *http.Request) {
	list, err := s.backend.Budgets.ListSavings(r.Context(), ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]savingsResponse, 0, len(list))
	for _, sum := range list {
		resp := newSavingsResponse(sum.Savings)
		resp.Effective = amountString(sum.Effective())
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSavings(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathYearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sav, err := s.backend.Budgets.GetOrCreateSavings(r.Context(), ownerFrom(r), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var derived decimal.Decimal
	if !sav.Actual.Valid {
		derived, err = s.backend.Reconciler.ActualSavings(r.Context(), ownerFrom(r), year, month)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	resp := newSavingsResponse(sav)
	resp.Effective = amountString(core.SavingsSummary{Savings: sav, Derived: derived}.Effective())
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateSavings(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathYearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req savingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	upd, err := req.toUpdate()
	if err != nil {
		writeError(w, r, err)
		return
	}
	sav, err := s.backend.Budgets.UpdateSavings(r.Context(), ownerFrom(r), year, month, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSavingsResponse(sav))
}
